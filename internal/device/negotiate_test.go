package device

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/driftblend/api/internal/spotify"
)

type fakeClock struct {
	sleeps int
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps++
	return ctx.Err()
}

type fakeLister struct {
	snapshots [][]spotify.Device
	calls     int
	active    *spotify.Device
}

func (f *fakeLister) Devices(ctx context.Context) ([]spotify.Device, error) {
	snap := f.snapshots[f.calls]
	if f.calls < len(f.snapshots)-1 {
		f.calls++
	}
	return snap, nil
}

func (f *fakeLister) ActiveDevice(ctx context.Context, onlyActive bool) (*spotify.Device, error) {
	return f.active, nil
}

type fakeAliases map[string]string

func (f fakeAliases) DeviceAlias(ctx context.Context, userID, logicalID string) (string, error) {
	return f[logicalID], nil
}

func newTestNegotiator(aliases AliasStore) *Negotiator {
	n := NewNegotiator(aliases, 100*time.Millisecond, 500*time.Millisecond, log.New(io.Discard))
	n.Clock = &fakeClock{}
	return n
}

func TestWaitForNewDevice(t *testing.T) {
	ctx := context.Background()

	t.Run("Newly Appeared Device", func(t *testing.T) {
		client := &fakeLister{
			snapshots: [][]spotify.Device{
				{{ID: "A"}},
				{{ID: "A"}},
				{{ID: "A"}, {ID: "B"}},
			},
		}

		result, err := newTestNegotiator(nil).WaitForNewDevice(ctx, client, "user1", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.DeviceID != "B" {
			t.Errorf("expected device B, got %q", result.DeviceID)
		}
		if !result.IsNew {
			t.Error("expected IsNew for a freshly appeared device")
		}
		if result.State != StateFound {
			t.Errorf("expected found state, got %s", result.State)
		}
	})

	t.Run("Alias Hit Skips Polling", func(t *testing.T) {
		client := &fakeLister{
			snapshots: [][]spotify.Device{
				{{ID: "A"}, {ID: "B"}},
			},
		}
		n := newTestNegotiator(fakeAliases{"bedroom": "B"})

		result, err := n.WaitForNewDevice(ctx, client, "user1", "bedroom")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.DeviceID != "B" {
			t.Errorf("expected aliased device B, got %q", result.DeviceID)
		}
		if result.IsNew {
			t.Error("alias hit must not count as a new device")
		}
		if clock := n.Clock.(*fakeClock); clock.sleeps != 0 {
			t.Errorf("expected no polling sleeps, got %d", clock.sleeps)
		}
	})

	t.Run("Stale Alias Falls Through To Polling", func(t *testing.T) {
		client := &fakeLister{
			snapshots: [][]spotify.Device{
				{{ID: "A"}},
				{{ID: "A"}, {ID: "C"}},
			},
		}

		result, err := newTestNegotiator(fakeAliases{"bedroom": "gone"}).WaitForNewDevice(ctx, client, "user1", "bedroom")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.DeviceID != "C" || !result.IsNew {
			t.Errorf("expected new device C, got %+v", result)
		}
	})

	t.Run("Fallback To Active Device", func(t *testing.T) {
		client := &fakeLister{
			snapshots: [][]spotify.Device{
				{{ID: "A"}},
			},
			active: &spotify.Device{ID: "A", IsActive: true},
		}

		result, err := newTestNegotiator(nil).WaitForNewDevice(ctx, client, "user1", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.DeviceID != "A" {
			t.Errorf("expected active device A, got %q", result.DeviceID)
		}
		if result.IsNew {
			t.Error("fallback must not count as a new device")
		}
		if result.State != StateFellBack {
			t.Errorf("expected fell_back state, got %s", result.State)
		}
	})

	t.Run("No Device At All", func(t *testing.T) {
		client := &fakeLister{
			snapshots: [][]spotify.Device{
				{{ID: "A"}},
			},
		}

		result, err := newTestNegotiator(nil).WaitForNewDevice(ctx, client, "user1", "")
		if !errors.Is(err, ErrNoDeviceAvailable) {
			t.Fatalf("expected ErrNoDeviceAvailable, got %v", err)
		}
		if result.State != StateFailed {
			t.Errorf("expected failed state, got %s", result.State)
		}
	})
}

func TestMachineObserve(t *testing.T) {
	m := NewMachine([]spotify.Device{{ID: "A"}, {ID: "B"}})

	if id, ok := m.Observe([]spotify.Device{{ID: "A"}, {ID: "B"}}); ok {
		t.Errorf("unchanged snapshot must not match, got %q", id)
	}
	if id, ok := m.Observe([]spotify.Device{{ID: "B"}}); ok {
		t.Errorf("shrunken snapshot must not match, got %q", id)
	}

	id, ok := m.Observe([]spotify.Device{{ID: "A"}, {ID: "C"}, {ID: "D"}})
	if !ok || id != "C" {
		t.Fatalf("expected first new id C, got %q ok=%v", id, ok)
	}
	if m.State() != StateFound {
		t.Errorf("expected found state, got %s", m.State())
	}

	// A found machine stays found; later snapshots are ignored.
	if _, ok := m.Observe([]spotify.Device{{ID: "E"}}); ok {
		t.Error("found machine must not match again")
	}
}
