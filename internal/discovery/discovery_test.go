package discovery

import (
	"strings"
	"testing"
	"time"
)

func TestChunkAndDecodeAdvertisementRoundTrip(t *testing.T) {
	adv := []byte(`{"type":"service","name":"n","broadcasts":["` + strings.Repeat("x", 500) + `"]}`)
	txt := chunkAdvertisement(adv)
	if len(txt) < 2 {
		t.Fatalf("expected advertisement to span multiple TXT entries, got %d", len(txt))
	}
	got := decodeAdvertisement(txt)
	if string(got) != string(adv) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(adv))
	}
}

func TestChunkAdvertisementEmpty(t *testing.T) {
	txt := chunkAdvertisement(nil)
	if len(txt) != 1 || txt[0] != "adv=" {
		t.Fatalf("expected single empty adv entry, got %v", txt)
	}
	if got := decodeAdvertisement(txt); len(got) != 0 {
		t.Fatalf("expected empty decode, got %q", got)
	}
}

func TestPruneStaleRemovesExpiredPeers(t *testing.T) {
	d := New(Options{NodeTimeout: 10 * time.Millisecond})
	ch := d.Subscribe(4)
	defer d.Unsubscribe(ch)

	d.updateSnapshot(func(current map[string]*Peer) map[string]*Peer {
		clone := clonePeers(current)
		clone["stale"] = &Peer{Instance: "stale", LastSeen: time.Now().Add(-time.Hour)}
		return clone
	})

	d.pruneStale()

	select {
	case ev := <-ch:
		if ev.Type != EventRemoved || ev.Peer.Instance != "stale" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("expected a removed event")
	}

	if _, ok := d.PeersSnapshot()["stale"]; ok {
		t.Fatal("stale peer should have been pruned from the snapshot")
	}
}

func TestSubscribeUnsubscribeClosesChannel(t *testing.T) {
	d := New(Options{})
	ch := d.Subscribe(1)
	d.Unsubscribe(ch)
	if _, open := <-ch; open {
		t.Fatal("expected channel to be closed after Unsubscribe")
	}
}
