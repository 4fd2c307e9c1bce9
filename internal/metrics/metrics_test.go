package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewHubRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHub(reg)

	m.PeersConnected.Set(2)
	m.MessagesReceived.Inc()

	count, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatalf("GatherAndCount returned error: %v", err)
	}
	if count != 6 {
		t.Errorf("Expected 6 hub series, got %d", count)
	}
	if got := testutil.ToFloat64(m.PeersConnected); got != 2 {
		t.Errorf("Expected peers_connected 2, got %v", got)
	}
}

// TestIndependentRegistries verifies that two instances can coexist, which
// the tests of the hub and peer packages rely on.
func TestIndependentRegistries(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Creating metrics twice panicked: %v", r)
		}
	}()

	a := NewPeer(nil)
	b := NewPeer(nil)
	a.EchoReplies.Inc()

	if got := testutil.ToFloat64(b.EchoReplies); got != 0 {
		t.Errorf("Expected independent counters, got %v", got)
	}
}
