package services

import (
	"context"
	"fmt"
	"slices"
	"summard/internal/lightning"
	"summard/internal/models"
	"summard/internal/providers"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// NodeContext carries the node facts a fetch depends on.
type NodeContext struct {
	ID      string
	Version string
}

// Source fetches one event class from the node.
type Source[E models.LedgerEvent] interface {
	Class() string
	// Indexed reports whether the node can page this class by created index.
	Indexed(node NodeContext) bool
	Fetch(ctx context.Context, req lightning.ListRequest) ([]E, error)
}

type retainedEvent[E any] struct {
	ev  E
	seq uint64
}

// anchor is the newest event seen so far. Every incremental fetch starts at
// or below it, so a node whose index was reset shows up as a missing anchor.
type anchor struct {
	key   string
	index uint64
	set   bool
}

// Aggregator keeps the settled events of one class inside the current
// window plus a look-back buffer of events that may still settle. Fetches
// are single-flighted and committed atomically.
type Aggregator[E models.LedgerEvent] struct {
	source  Source[E]
	logger  providers.Logger
	metrics providers.MetricsProviderInterface

	mu       sync.Mutex
	cursor   models.FetchCursor
	retained map[string]retainedEvent[E]
	pending  map[string]retainedEvent[E]
	seq      uint64
	synced   bool
	last     anchor

	flight singleflight.Group
}

func NewAggregator[E models.LedgerEvent](source Source[E], logger providers.Logger, metrics providers.MetricsProviderInterface) *Aggregator[E] {
	return &Aggregator[E]{
		source:   source,
		logger:   logger,
		metrics:  metrics,
		retained: make(map[string]retainedEvent[E]),
		pending:  make(map[string]retainedEvent[E]),
	}
}

func (a *Aggregator[E]) Class() string { return a.source.Class() }

// Sync brings the buffer up to date for a window starting at since.
func (a *Aggregator[E]) Sync(ctx context.Context, node NodeContext, since time.Time) error {
	detached := context.WithoutCancel(ctx)
	ch := a.flight.DoChan("sync", func() (any, error) {
		return nil, a.sync(detached, node, since)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (a *Aggregator[E]) sync(ctx context.Context, node NodeContext, since time.Time) error {
	class := a.source.Class()
	indexed := a.source.Indexed(node)

	a.mu.Lock()
	full := !indexed || !a.synced || since.Before(a.cursor.Horizon)
	start := a.fetchStartLocked()
	last := a.last
	a.mu.Unlock()
	if full {
		start = 0
	} else if last.set {
		start = min(start, last.index)
	}

	events, err := a.source.Fetch(ctx, lightning.ListRequest{Indexed: indexed, Start: start})
	if err != nil {
		a.metrics.ObserveLedgerFetch(class, 0, err)
		return fmt.Errorf("fetch %s: %w", class, err)
	}

	reset := !full && a.resetDetected(events, start, last)
	if reset {
		a.metrics.IncCursorResets(class)
		a.logger.Warnf(providers.TypeApp, "%s index reset detected at start %d, refetching everything", class, start)
		full = true
		events, err = a.source.Fetch(ctx, lightning.ListRequest{Indexed: indexed})
		if err != nil {
			a.metrics.ObserveLedgerFetch(class, 0, err)
			return fmt.Errorf("refetch %s: %w", class, err)
		}
	}

	a.metrics.ObserveLedgerFetch(class, len(events), nil)
	a.commit(events, full, reset, since)
	a.logger.Debugf(providers.TypeApp, "%s: fetched %d events from %d (full=%t)", class, len(events), start, full)
	return nil
}

// fetchStartLocked is the cursor, pulled back to the oldest event still
// waiting to settle.
func (a *Aggregator[E]) fetchStartLocked() uint64 {
	start := a.cursor.Next
	for _, p := range a.pending {
		if idx := p.ev.CreatedIndex(); idx.Valid && idx.Int64 >= 0 && uint64(idx.Int64) < start {
			start = uint64(idx.Int64)
		}
	}
	return start
}

// resetDetected reports whether the node handed back indexes that cannot
// follow from our cursor, which happens when its index was reset. A node
// that renumbered from scratch answers below-cursor queries with nothing,
// so the newest known event must come back unchanged.
func (a *Aggregator[E]) resetDetected(events []E, start uint64, last anchor) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	anchored := !last.set
	for _, ev := range events {
		idx := ev.CreatedIndex()
		if !idx.Valid {
			continue
		}
		if idx.Int64 < 0 || uint64(idx.Int64) < start {
			return true
		}
		key := ev.Key()
		if last.set && uint64(idx.Int64) == last.index {
			if key != last.key {
				return true
			}
			anchored = true
		}
		for _, known := range []map[string]retainedEvent[E]{a.retained, a.pending} {
			if old, ok := known[key]; ok {
				if oi := old.ev.CreatedIndex(); oi.Valid && oi.Int64 != idx.Int64 {
					return true
				}
			}
		}
	}
	return !anchored
}

func (a *Aggregator[E]) commit(events []E, full, reset bool, since time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	prevRetained, prevPending := a.retained, a.pending
	if full {
		a.retained = make(map[string]retainedEvent[E], len(prevRetained))
		a.pending = make(map[string]retainedEvent[E], len(prevPending))
		a.cursor.Next = 0
		a.last = anchor{}
	}
	if reset {
		a.cursor.Resets++
	}

	for _, ev := range events {
		key := ev.Key()
		seq, ok := a.knownSeq(key, prevRetained, prevPending)
		if !ok {
			a.seq++
			seq = a.seq
		}
		switch ev.State() {
		case models.EventComplete:
			a.retained[key] = retainedEvent[E]{ev: ev, seq: seq}
			delete(a.pending, key)
		case models.EventPending:
			a.pending[key] = retainedEvent[E]{ev: ev, seq: seq}
			delete(a.retained, key)
		default:
			delete(a.retained, key)
			delete(a.pending, key)
		}
		if idx := ev.CreatedIndex(); idx.Valid && idx.Int64 >= 0 && uint64(idx.Int64) >= a.cursor.Next {
			a.cursor.Next = uint64(idx.Int64) + 1
			a.last = anchor{key: key, index: uint64(idx.Int64), set: true}
		}
	}

	for key, r := range a.retained {
		if st := r.ev.SettledAt(); !st.Valid || st.Time.Before(since) {
			delete(a.retained, key)
		}
	}
	a.cursor.Horizon = since
	a.synced = true
}

func (a *Aggregator[E]) knownSeq(key string, maps ...map[string]retainedEvent[E]) (uint64, bool) {
	for _, m := range append([]map[string]retainedEvent[E]{a.retained, a.pending}, maps...) {
		if r, ok := m[key]; ok {
			return r.seq, true
		}
	}
	return 0, false
}

// Events returns the settled events inside [since, now] in arrival order.
func (a *Aggregator[E]) Events(since time.Time) []E {
	a.mu.Lock()
	list := make([]retainedEvent[E], 0, len(a.retained))
	for _, r := range a.retained {
		if st := r.ev.SettledAt(); st.Valid && !st.Time.Before(since) {
			list = append(list, r)
		}
	}
	a.mu.Unlock()

	slices.SortFunc(list, func(x, y retainedEvent[E]) int {
		switch {
		case x.seq < y.seq:
			return -1
		case x.seq > y.seq:
			return 1
		}
		return 0
	})
	out := make([]E, len(list))
	for i, r := range list {
		out[i] = r.ev
	}
	return out
}

func (a *Aggregator[E]) Cursor() models.FetchCursor {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cursor
}

func (a *Aggregator[E]) PendingCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}
