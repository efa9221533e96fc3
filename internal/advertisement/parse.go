package advertisement

import "github.com/tidwall/gjson"

// Parsed is the subset of a peer's advertisement the peer matcher
// needs to read. Unknown fields are intentionally not
// captured here; gjson reads straight off the raw bytes so callers that
// need something else can query the same raw document directly.
type Parsed struct {
	Type      string
	Name      string
	Namespace string
	HasNS     bool
	AxonType  string
	Key       string
	Port      int
	HasPort   bool
	Topics    []string
	HasTopics bool
}

// Parse extracts the fields above from a raw advertisement document. It
// never errors: a malformed or absent document simply yields zero values,
// which the peer matcher's existence/role/key checks will then reject.
func Parse(raw []byte) Parsed {
	var out Parsed
	if len(raw) == 0 {
		return out
	}

	root := gjson.ParseBytes(raw)
	out.Type = root.Get("type").String()
	out.Name = root.Get("name").String()

	if ns := root.Get("namespace"); ns.Exists() {
		out.HasNS = true
		out.Namespace = ns.String()
	}

	out.AxonType = root.Get("axon_type").String()
	out.Key = root.Get("key").String()

	if port := root.Get("port"); port.Exists() {
		out.HasPort = true
		out.Port = int(port.Int())
	}

	for _, key := range []string{"broadcasts", "subscribesTo", "requests", "respondsTo"} {
		if field := root.Get(key); field.Exists() && field.IsArray() {
			out.HasTopics = true
			field.ForEach(func(_, v gjson.Result) bool {
				out.Topics = append(out.Topics, v.String())
				return true
			})
			break
		}
	}

	return out
}
