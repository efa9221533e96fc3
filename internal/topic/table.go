package topic

import (
	"regexp"
	"sync"
)

// Entry is one subscription: a fulltopic pattern plus the opaque
// callback and user-pointer the node installed. The table never
// interprets Fn/UserData; it exists purely to own ordering, uniqueness,
// and locked dispatch (spec §4.5).
type Entry struct {
	Fulltopic string
	Fn        any
	UserData  any
}

// Table is the ordered subscription list described in spec §4.5:
// subscribe updates an existing entry with the same fulltopic in
// place, otherwise appends; dispatch holds the table's own mutex
// across the entire fan-out so an unsubscribe can never free a
// callback that is mid-flight (spec §5).
type Table struct {
	mu      sync.Mutex
	entries []*Entry
}

// NewTable returns an empty subscription table.
func NewTable() *Table {
	return &Table{}
}

// Subscribe installs fn/userData under fulltopic. If an entry with the
// identical fulltopic string already exists, its callback and
// user-pointer are replaced in place and no duplicate is created.
func (t *Table) Subscribe(fulltopic string, fn any, userData any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.entries {
		if e.Fulltopic == fulltopic {
			e.Fn = fn
			e.UserData = userData
			return
		}
	}
	t.entries = append(t.entries, &Entry{Fulltopic: fulltopic, Fn: fn, UserData: userData})
}

// Unsubscribe removes the entry whose fulltopic matches exactly
// (callers must pass the same fulltopic string the namer produced).
// It reports whether an entry was removed. Because it takes the same
// mutex Dispatch holds for the whole fan-out, it blocks until any
// in-flight dispatch to that entry has returned.
func (t *Table) Unsubscribe(fulltopic string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, e := range t.entries {
		if e.Fulltopic == fulltopic {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of live subscriptions.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Dispatch locks the table for the duration of visit, then calls visit
// once per entry (in insertion order) whose fulltopic, compiled as a
// POSIX extended regular expression, matches subject. No compiled
// pattern is cached; spec §4.7 prioritizes correctness over throughput
// here.
func (t *Table) Dispatch(subject string, visit func(*Entry)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.entries {
		re, err := regexp.CompilePOSIX(e.Fulltopic)
		if err != nil {
			continue // an unparsable pattern simply never matches
		}
		if re.MatchString(subject) {
			visit(e)
		}
	}
}

// Release empties the table. Entries are dropped under the same lock
// Dispatch uses, so Release waits for any in-flight dispatch to finish
// first.
func (t *Table) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
}
