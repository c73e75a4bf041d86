// Package device implements the bounded polling search for a playback
// device: either a just-activated device that was not in the initial
// snapshot, or the service's active device as a fallback.
package device

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/driftblend/api/internal/spotify"
)

// ErrNoDeviceAvailable is returned when negotiation exhausts its budget and
// no fallback device exists. Callers surface it as a "pick a device" condition.
var ErrNoDeviceAvailable = errors.New("no device available")

// State is the negotiation phase.
type State int

const (
	StateIdle State = iota
	StatePolling
	StateFound
	StateFellBack
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateFound:
		return "found"
	case StateFellBack:
		return "fell_back"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Clock abstracts timed waits so polling loops can be tested with a fake.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock sleeps on the wall clock, honoring context cancellation.
type RealClock struct{}

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Lister is the slice of the playback client negotiation needs.
type Lister interface {
	Devices(ctx context.Context) ([]spotify.Device, error)
	ActiveDevice(ctx context.Context, onlyActive bool) (*spotify.Device, error)
}

// AliasStore resolves locally-persisted logical device ids.
type AliasStore interface {
	DeviceAlias(ctx context.Context, userID, logicalID string) (string, error)
}

// Result is the outcome of a negotiation.
type Result struct {
	DeviceID string
	IsNew    bool // true only for a freshly-appeared device, never for alias or fallback hits
	State    State
}

// Machine tracks the device-id set observed at the start of polling and
// reports the first id that appears later. Snapshots may be stale or racy;
// the machine only ever compares id sets.
type Machine struct {
	state   State
	initial map[string]struct{}
}

func NewMachine(initial []spotify.Device) *Machine {
	seen := make(map[string]struct{}, len(initial))
	for _, d := range initial {
		seen[d.ID] = struct{}{}
	}
	return &Machine{state: StatePolling, initial: seen}
}

// Observe feeds a device-list snapshot into the machine. It returns the
// first newly-appeared device id in snapshot order, transitioning to
// StateFound, or ok=false while polling should continue.
func (m *Machine) Observe(devices []spotify.Device) (string, bool) {
	if m.state != StatePolling {
		return "", false
	}
	for _, d := range devices {
		if _, known := m.initial[d.ID]; !known {
			m.state = StateFound
			return d.ID, true
		}
	}
	return "", false
}

// State returns the machine's current phase.
func (m *Machine) State() State {
	return m.state
}

// Negotiator polls the live device list under a fixed interval and budget.
type Negotiator struct {
	Aliases  AliasStore
	Interval time.Duration
	Budget   time.Duration
	Clock    Clock
	Logger   *log.Logger
}

func NewNegotiator(aliases AliasStore, interval, budget time.Duration, logger *log.Logger) *Negotiator {
	return &Negotiator{
		Aliases:  aliases,
		Interval: interval,
		Budget:   budget,
		Clock:    RealClock{},
		Logger:   logger,
	}
}

// WaitForNewDevice resolves a logical device reference for the user.
//
// The persisted alias is checked against the live list first; a hit returns
// immediately without polling. Otherwise the list is polled for a device id
// absent from the initial snapshot. When the budget runs out, the service's
// active device is used as a fallback if one exists.
func (n *Negotiator) WaitForNewDevice(ctx context.Context, client Lister, userID, logicalID string) (Result, error) {
	initial, err := client.Devices(ctx)
	if err != nil {
		return Result{State: StateFailed}, err
	}

	if n.Aliases != nil && logicalID != "" {
		realID, err := n.Aliases.DeviceAlias(ctx, userID, logicalID)
		if err != nil {
			return Result{State: StateFailed}, err
		}
		if realID != "" {
			for _, d := range initial {
				if d.ID == realID {
					return Result{DeviceID: realID, IsNew: false, State: StateFound}, nil
				}
			}
		}
	}

	machine := NewMachine(initial)
	steps := int(n.Budget / n.Interval)
	for step := 0; step < steps; step++ {
		current, err := client.Devices(ctx)
		if err != nil {
			return Result{State: StateFailed}, err
		}
		if id, ok := machine.Observe(current); ok {
			n.Logger.Debug("new device appeared", "device", id, "polls", step+1)
			return Result{DeviceID: id, IsNew: true, State: StateFound}, nil
		}
		if step != steps-1 {
			if err := n.Clock.Sleep(ctx, n.Interval); err != nil {
				return Result{State: StateFailed}, err
			}
		}
	}

	active, err := client.ActiveDevice(ctx, true)
	if err != nil {
		return Result{State: StateFailed}, err
	}
	if active != nil {
		n.Logger.Debug("falling back to active device", "device", active.ID)
		return Result{DeviceID: active.ID, IsNew: false, State: StateFellBack}, nil
	}
	return Result{State: StateFailed}, ErrNoDeviceAvailable
}
