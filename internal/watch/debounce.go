package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pagefold/pagefold/internal/events"
)

// DebouncerConfig tunes rebuild coalescing.
type DebouncerConfig struct {
	// QuietWindow is how long the request stream must stay silent before a
	// rebuild is emitted.
	QuietWindow time.Duration
	// MaxDelay caps how long a steady stream of requests can postpone the
	// rebuild.
	MaxDelay time.Duration
}

// Debouncer coalesces bursts of RebuildRequested events into single
// RebuildDue emissions. An editor save typically produces several filesystem
// events within milliseconds; without coalescing each would trigger a full
// build. Safe to run as a single goroutine.
type Debouncer struct {
	bus *events.Bus
	cfg DebouncerConfig

	readyOnce sync.Once
	ready     chan struct{}

	mu             sync.Mutex
	pending        bool
	firstRequestAt time.Time
	lastRequestAt  time.Time
	lastReason     string
	lastPath       string
	requestCount   int
}

// NewDebouncer validates the config and returns a debouncer bound to the bus.
func NewDebouncer(bus *events.Bus, cfg DebouncerConfig) (*Debouncer, error) {
	if bus == nil {
		return nil, fmt.Errorf("debouncer: bus is required")
	}
	if cfg.QuietWindow <= 0 {
		return nil, fmt.Errorf("debouncer: quiet window must be > 0")
	}
	if cfg.MaxDelay <= 0 {
		return nil, fmt.Errorf("debouncer: max delay must be > 0")
	}
	return &Debouncer{bus: bus, cfg: cfg, ready: make(chan struct{})}, nil
}

// Ready is closed once Run has subscribed to the bus. Intended for
// deterministic startup sequencing in tests.
func (d *Debouncer) Ready() <-chan struct{} {
	return d.ready
}

// Run consumes rebuild requests until the context is canceled or the bus
// closes.
func (d *Debouncer) Run(ctx context.Context) error {
	reqCh, unsubscribe := events.Subscribe[events.RebuildRequested](d.bus, 64)
	defer unsubscribe()

	d.readyOnce.Do(func() { close(d.ready) })

	// Timers start stopped; their channels stay nil until armed.
	quietTimer := newStoppedTimer()
	maxTimer := newStoppedTimer()

	var quietC, maxC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case req, ok := <-reqCh:
			if !ok {
				return nil
			}
			first := d.onRequest(req)

			resetTimer(quietTimer, d.cfg.QuietWindow)
			quietC = quietTimer.C
			if first {
				resetTimer(maxTimer, d.cfg.MaxDelay)
				maxC = maxTimer.C
			}

		case <-quietC:
			d.emit(ctx, "quiet")
			quietC = nil
			maxC = nil

		case <-maxC:
			d.emit(ctx, "max_delay")
			quietC = nil
			maxC = nil
		}
	}
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	return t
}

func resetTimer(t *time.Timer, after time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(after)
}

// onRequest folds a request into the pending burst. Returns true when the
// request opened a new burst.
func (d *Debouncer) onRequest(req events.RebuildRequested) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := req.RequestedAt
	if now.IsZero() {
		now = time.Now()
	}

	first := !d.pending
	if first {
		d.pending = true
		d.firstRequestAt = now
		d.requestCount = 0
	}

	d.lastRequestAt = now
	d.lastReason = req.Reason
	d.lastPath = req.Path
	d.requestCount++
	return first
}

func (d *Debouncer) emit(ctx context.Context, cause string) {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	evt := events.RebuildDue{
		TriggeredAt:  time.Now(),
		RequestCount: d.requestCount,
		LastReason:   d.lastReason,
		LastPath:     d.lastPath,
		FirstRequest: d.firstRequestAt,
		LastRequest:  d.lastRequestAt,
		Cause:        cause,
	}
	d.pending = false
	d.mu.Unlock()

	_ = d.bus.Publish(ctx, evt)
}
