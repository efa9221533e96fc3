package advertisement

import "testing"

func TestBuildPubSetsPortAndAxonType(t *testing.T) {
	raw, err := Build(Params{
		Role:   "pub",
		Name:   "node-a",
		Topics: []string{"temperature"},
		Port:   4000,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	p := Parse(raw)
	if p.Type != "service" {
		t.Errorf("type = %q, want service", p.Type)
	}
	if p.AxonType != AxonTypePubEmitter {
		t.Errorf("axon_type = %q, want %q", p.AxonType, AxonTypePubEmitter)
	}
	if p.Key != FixedKey {
		t.Errorf("key = %q, want %q", p.Key, FixedKey)
	}
	if !p.HasPort || p.Port != 4000 {
		t.Errorf("port = %v (has=%v), want 4000", p.Port, p.HasPort)
	}
	if len(p.Topics) != 1 || p.Topics[0] != "temperature" {
		t.Errorf("topics = %v, want [temperature]", p.Topics)
	}
}

func TestBuildMonForcesMonitorTypeAndZeroPort(t *testing.T) {
	raw, err := Build(Params{Role: "mon", Name: "watcher"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	p := Parse(raw)
	if p.Type != "monitor" {
		t.Errorf("type = %q, want monitor", p.Type)
	}
	if !p.HasPort || p.Port != 0 {
		t.Errorf("port = %v (has=%v), want 0", p.Port, p.HasPort)
	}
}

func TestBuildSubOmitsPort(t *testing.T) {
	raw, err := Build(Params{Role: "sub", Name: "listener", Topics: []string{"a.*"}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	p := Parse(raw)
	if p.HasPort {
		t.Errorf("sub advertisement should omit port, got %v", p.Port)
	}
	if p.AxonType != AxonTypeSubEmitter {
		t.Errorf("axon_type = %q, want %q", p.AxonType, AxonTypeSubEmitter)
	}
}

func TestBuildPreservesUnknownFields(t *testing.T) {
	base := []byte(`{"build":"1.2.3","region":"eu-west"}`)
	raw, err := Build(Params{Role: "rep", Name: "calc", Port: 9000, Base: base})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	root := string(raw)
	if !contains(root, `"build":"1.2.3"`) {
		t.Errorf("expected unknown field build to survive, got %s", root)
	}
	if !contains(root, `"region":"eu-west"`) {
		t.Errorf("expected unknown field region to survive, got %s", root)
	}
}

func TestBuildNamespaceOmittedWhenEmpty(t *testing.T) {
	raw, err := Build(Params{Role: "req", Name: "caller"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	p := Parse(raw)
	if p.HasNS {
		t.Errorf("expected no namespace field, got %q", p.Namespace)
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
