package options

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Store is the thread-safe mutable options bag described in spec §4.1 and
// §5: a single mutex guards every field and is held across each Set
// mutation. Advertisement construction and peer-matcher reads do not run
// under it; they work on a deep copy taken under the lock (the clone Set
// hands to onChange after unlocking, or a Snapshot).
type Store struct {
	mu       sync.Mutex
	opts     *Options
	onChange func(*Options) // invoked with a fresh clone after every successful Set
}

// NewStore returns a Store seeded with discovery-adapter defaults.
func NewStore(onChange func(*Options)) *Store {
	return &Store{
		opts:     New(),
		onChange: onChange,
	}
}

// Snapshot returns a deep copy of the current options for read-only use
// outside the store's lock.
func (s *Store) Snapshot() *Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.Clone()
}

// WithLock runs fn with the options mutex held, for callers that must
// read several fields as of a single consistent instant without taking
// a copy. The peer matcher does not use it: the node hands the matcher
// values read from a Snapshot.
func (s *Store) WithLock(fn func(*Options)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.opts)
}

// Set mutates the named option. Recognized names are listed in spec §6.
// Unrecognized names or values of the wrong type return an error and
// leave the store unchanged.
func (s *Store) Set(name string, value any) error {
	s.mu.Lock()
	if err := s.applyLocked(name, value); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.opts.Clone()
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(snap)
	}
	return nil
}

func (s *Store) applyLocked(name string, value any) error {
	switch name {
	case "helloInterval":
		d, err := durationMS(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.HelloInterval = d
	case "checkInterval":
		d, err := durationMS(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.CheckInterval = d
	case "nodeTimeout":
		d, err := durationMS(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.NodeTimeout = d
	case "masterTimeout":
		d, err := durationMS(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.MasterTimeout = d
	case "address":
		v, err := str(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.Address = v
	case "port":
		v, err := intVal(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.Port = v
	case "broadcast":
		v, err := str(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.Broadcast = v
	case "multicast":
		v, err := str(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.Multicast = v
	case "multicastTTL":
		v, err := intVal(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.MulticastTTL = v
	case "unicast":
		v, err := boolVal(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.Unicast = v
	case "hostname":
		v, err := str(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.Hostname = v
	case "useHostNames":
		v, err := boolVal(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.UseHostNames = v
	case "key":
		v, err := str(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.Key = v
	case "mastersRequired":
		v, err := intVal(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.MastersRequired = v
	case "weight":
		v, err := intVal(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.Weight = v
	case "client":
		v, err := boolVal(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.Client = v
	case "reuseAddr":
		v, err := boolVal(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.ReuseAddr = v
	case "ignoreProcess":
		v, err := boolVal(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.IgnoreProcess = v
	case "ignoreInstance":
		v, err := boolVal(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.IgnoreInstance = v
	case "namespace":
		v, err := str(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.Namespace = v
	case "advertisement":
		raw, err := rawJSON(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.Advertisement = raw
	case "broadcasts":
		v, err := strSlice(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.Broadcasts = v
	case "subscribesTo":
		v, err := strSlice(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.SubscribesTo = v
	case "requests":
		v, err := strSlice(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.Requests = v
	case "respondsTo":
		v, err := strSlice(value)
		if err != nil {
			return wrapErr(name, err)
		}
		s.opts.RespondsTo = v
	default:
		return fmt.Errorf("unrecognized option %q", name)
	}
	return nil
}

func wrapErr(name string, err error) error {
	return fmt.Errorf("option %q: %w", name, err)
}

func durationMS(value any) (time.Duration, error) {
	v, err := intVal(value)
	if err != nil {
		return 0, err
	}
	return time.Duration(v) * time.Millisecond, nil
}

func str(value any) (string, error) {
	v, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", value)
	}
	return v, nil
}

func boolVal(value any) (bool, error) {
	v, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool, got %T", value)
	}
	return v, nil
}

func intVal(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", value)
	}
}

func strSlice(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return cloneStrings(v), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("expected []string, element %T is not a string", e)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected []string, got %T", value)
	}
}

func rawJSON(value any) (json.RawMessage, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return cloneRaw(v), nil
	case []byte:
		return cloneRaw(json.RawMessage(v)), nil
	case string:
		return cloneRaw(json.RawMessage(v)), nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("value not JSON-encodable: %w", err)
		}
		return encoded, nil
	}
}
