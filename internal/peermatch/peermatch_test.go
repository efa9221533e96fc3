package peermatch

import "testing"

func advJSON(axonType, namespace, key string, port int, topicsKey string, topics []string) []byte {
	out := `{"axon_type":"` + axonType + `"`
	if key != "" {
		out += `,"key":"` + key + `"`
	}
	if namespace != "" {
		out += `,"namespace":"` + namespace + `"`
	}
	if port != 0 {
		out += `,"port":` + itoa(port)
	}
	if topicsKey != "" {
		out += `,"` + topicsKey + `":[`
		for i, t := range topics {
			if i > 0 {
				out += ","
			}
			out += `"` + t + `"`
		}
		out += `]`
	}
	out += `}`
	return []byte(out)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func TestDecideDropsOnMissingAdvertisement(t *testing.T) {
	d := Decide(Local{Role: "sub"}, "10.0.0.1", "host", nil, nil)
	if d.Accept {
		t.Fatal("expected Accept false for missing advertisement")
	}
}

func TestDecideDropsOnRoleMismatch(t *testing.T) {
	raw := advJSON("rep", "", "$$", 4000, "respondsTo", []string{"x"})
	d := Decide(Local{Role: "sub"}, "10.0.0.1", "host", raw, nil)
	if d.Accept {
		t.Fatal("expected Accept false: sub expects pub-emitter, got rep")
	}
}

func TestDecideDropsOnKeyMismatch(t *testing.T) {
	raw := advJSON("pub-emitter", "", "wrong-key", 4000, "broadcasts", []string{"x"})
	d := Decide(Local{Role: "sub"}, "10.0.0.1", "host", raw, nil)
	if d.Accept {
		t.Fatal("expected Accept false on key mismatch")
	}
}

func TestDecideDropsOnNamespaceMismatch(t *testing.T) {
	raw := advJSON("pub-emitter", "other-ns", "$$", 4000, "broadcasts", []string{"x"})
	d := Decide(Local{Role: "sub", Namespace: "my-ns", HasNamespace: true}, "10.0.0.1", "host", raw, nil)
	if d.Accept {
		t.Fatal("expected Accept false on namespace mismatch")
	}

	rawNoNS := advJSON("pub-emitter", "", "$$", 4000, "broadcasts", []string{"x"})
	d2 := Decide(Local{Role: "sub", Namespace: "my-ns", HasNamespace: true}, "10.0.0.1", "host", rawNoNS, nil)
	if d2.Accept {
		t.Fatal("expected Accept false: local has namespace, peer doesn't")
	}

	d3 := Decide(Local{Role: "sub"}, "10.0.0.1", "host", raw, nil)
	if d3.Accept {
		t.Fatal("expected Accept false: local has no namespace, peer does")
	}
}

func TestDecideConnectsOnTopicIntersection(t *testing.T) {
	raw := advJSON("pub-emitter", "", "$$", 4000, "broadcasts", []string{"temperature.indoor"})
	d := Decide(Local{Role: "sub", Topics: []string{"temperature\\..*"}}, "10.0.0.1", "host", raw, nil)
	if !d.Accept || !d.Connect {
		t.Fatalf("expected Accept and Connect true, got %+v", d)
	}
	if d.Host != "10.0.0.1" || d.Port != 4000 {
		t.Fatalf("unexpected endpoint: %+v", d)
	}
}

func TestDecideDropsWhenNoTopicIntersection(t *testing.T) {
	raw := advJSON("pub-emitter", "", "$$", 4000, "broadcasts", []string{"humidity"})
	d := Decide(Local{Role: "sub", Topics: []string{"temperature\\..*"}}, "10.0.0.1", "host", raw, nil)
	if !d.Accept {
		t.Fatal("expected Accept true: all earlier checks pass")
	}
	if d.Connect {
		t.Fatal("expected Connect false: no topic intersection")
	}
}

func TestDecideNilLocalTopicsAcceptsAll(t *testing.T) {
	raw := advJSON("pub-emitter", "", "$$", 4000, "broadcasts", []string{"anything"})
	d := Decide(Local{Role: "sub"}, "10.0.0.1", "host", raw, nil)
	if !d.Connect {
		t.Fatal("expected Connect true: nil local topic list accepts all")
	}
}

func TestDecideSkipsAlreadyConnectedPeer(t *testing.T) {
	raw := advJSON("pub-emitter", "", "$$", 4000, "broadcasts", []string{"x"})
	d := Decide(Local{Role: "sub"}, "10.0.0.1", "host", raw, func(host string, port int) bool {
		return host == "10.0.0.1" && port == 4000
	})
	if !d.Accept {
		t.Fatal("expected Accept true")
	}
	if d.Connect {
		t.Fatal("expected Connect false: already connected")
	}
}

func TestDecideUsesHostnameWhenConfigured(t *testing.T) {
	raw := advJSON("pub-emitter", "", "$$", 4000, "broadcasts", []string{"x"})
	d := Decide(Local{Role: "sub", UseHostNames: true}, "10.0.0.1", "node-b.local", raw, nil)
	if d.Host != "node-b.local" {
		t.Fatalf("Host = %q, want node-b.local", d.Host)
	}
}

func TestDecideMonSkipsRolePairing(t *testing.T) {
	raw := advJSON("pub-emitter", "", "$$", 4000, "broadcasts", []string{"x"})
	d := Decide(Local{Role: "mon"}, "10.0.0.1", "host", raw, nil)
	if !d.Accept {
		t.Fatal("expected MON to accept any axon_type")
	}
	if d.Connect {
		t.Fatal("MON never initiates connections")
	}
}

func TestDecideNonOutboundRoleNeverConnects(t *testing.T) {
	raw := advJSON("sub-emitter", "", "$$", 0, "", nil)
	d := Decide(Local{Role: "pub"}, "10.0.0.1", "host", raw, nil)
	if !d.Accept {
		t.Fatal("expected Accept true for matching pub/sub-emitter pairing")
	}
	if d.Connect {
		t.Fatal("PUB never initiates outbound connects")
	}
}
