package stream

import (
	"context"
	"log"
	"time"

	"github.com/castmatch/castmatch/internal/platform/timeouts"
)

// Keeper pings every registered connection on an interval and prunes the ones
// whose sends fail. It iterates a snapshot so a stalled stream never blocks
// the sweep over the others, and it never holds the registry lock during a
// send.
type Keeper struct {
	registry *Registry
	interval time.Duration
}

// NewKeeper constructs a heartbeat keeper over one registry. A non-positive
// interval falls back to the platform default.
func NewKeeper(registry *Registry, interval time.Duration) *Keeper {
	if interval <= 0 {
		interval = timeouts.Heartbeat
	}
	return &Keeper{
		registry: registry,
		interval: interval,
	}
}

// Interval returns the heartbeat period.
func (k *Keeper) Interval() time.Duration {
	return k.interval
}

// Run drives heartbeat ticks until ctx is cancelled.
func (k *Keeper) Run(ctx context.Context) {
	if k == nil || k.registry == nil {
		return
	}
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.Tick()
		}
	}
}

// Tick runs one heartbeat round. Exposed so tests can drive the keeper
// without waiting on the ticker.
func (k *Keeper) Tick() {
	pruned := 0
	for _, conn := range k.registry.snapshot() {
		if err := conn.sink.WriteFrame(Frame{Type: FrameTypePing}); err != nil {
			k.registry.Remove(conn)
			pruned++
		}
	}
	if pruned > 0 {
		log.Printf("stream: heartbeat pruned %d dead connections", pruned)
	}
}
