// Package autosave implements the downstream consumer of CellChanged
// events: the core only reaches autosave.enabled, autosave.interval_ms,
// and autosave.batch_size through this package.
package autosave

import (
	"context"
	"log"
	"time"

	"sheetcore/spreadsheet"
)

// Batcher subscribes to a Notifier's cell-changed stream and periodically
// flushes the set of touched addresses to a Sink, in batches bounded by
// BatchSize. It never re-derives computed values itself — on flush it
// re-reads the current snapshot from the CellStore, preserving the
// invariant that a formula's computed value only ever comes from
// spreadsheet.Evaluate, never from a second, independent computation.
type Batcher struct {
	sheetID  int64
	store    spreadsheet.CellStore
	sink     Sink
	interval time.Duration
	batch    int

	events <-chan spreadsheet.CellChanged
}

// Sink persists a batch of cells however the embedding system sees fit
// (a file, a warm-standby replica, a search index). This package ships
// no concrete Sink; the sheetcore command supplies one that only logs
// the size of each flushed batch.
type Sink interface {
	Save(ctx context.Context, cells []spreadsheet.Cell) error
}

// NewBatcher wires a Batcher to notifier's event stream for sheetID.
// intervalMs/batchSize come straight from autosave.interval_ms and
// autosave.batch_size.
func NewBatcher(sheetID int64, store spreadsheet.CellStore, notifier *spreadsheet.Notifier, sink Sink, intervalMs, batchSize int) *Batcher {
	if intervalMs <= 0 {
		intervalMs = 5000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Batcher{
		sheetID:  sheetID,
		store:    store,
		sink:     sink,
		interval: time.Duration(intervalMs) * time.Millisecond,
		batch:    batchSize,
		events:   notifier.Subscribe(256),
	}
}

// Run drains events and flushes on a ticker until ctx is cancelled. It is
// meant to be started with `go`, one long-lived goroutine per subscriber.
func (b *Batcher) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	dirty := make(map[string]struct{})
	for {
		select {
		case <-ctx.Done():
			b.flush(context.Background(), dirty)
			return
		case ev := <-b.events:
			dirty[ev.Addr] = struct{}{}
			if len(dirty) >= b.batch {
				b.flush(ctx, dirty)
				dirty = make(map[string]struct{})
			}
		case <-ticker.C:
			if len(dirty) == 0 {
				continue
			}
			b.flush(ctx, dirty)
			dirty = make(map[string]struct{})
		}
	}
}

func (b *Batcher) flush(ctx context.Context, dirty map[string]struct{}) {
	if len(dirty) == 0 {
		return
	}
	all, err := b.store.List(ctx, b.sheetID)
	if err != nil {
		log.Printf("autosave: list sheet %d: %v", b.sheetID, err)
		return
	}
	batch := make([]spreadsheet.Cell, 0, len(dirty))
	for _, c := range all {
		if _, touched := dirty[c.Addr.String()]; touched {
			batch = append(batch, c)
		}
	}
	if len(batch) == 0 {
		return
	}
	if err := b.sink.Save(ctx, batch); err != nil {
		log.Printf("autosave: save %d cells: %v", len(batch), err)
	}
}
