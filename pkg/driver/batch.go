package driver

import (
	"time"

	"github.com/cuemby/flowd/pkg/event"
	"github.com/cuemby/flowd/pkg/finalization"
)

// BatchConfig controls the thresholds that flush one partition's
// accumulating events into a Batch: max event count, max estimated
// byte size, max age since the first event in the open batch.
type BatchConfig struct {
	MaxEvents int
	MaxBytes  int
	MaxAge    time.Duration
}

func (c BatchConfig) maxEvents() int {
	if c.MaxEvents > 0 {
		return c.MaxEvents
	}
	return 500
}

func (c BatchConfig) maxAge() time.Duration {
	if c.MaxAge > 0 {
		return c.MaxAge
	}
	return time.Second
}

// Batch is a partition's accumulated events plus the union of their
// finalizers, ready for Encode.
type Batch struct {
	Key        PartitionKey
	Events     []event.Event
	Finalizers finalization.Set
}

// batcher accumulates events for a single partition key until one of
// BatchConfig's thresholds trips.
type batcher struct {
	key     PartitionKey
	cfg     BatchConfig
	events  []event.Event
	fin     finalization.Set
	bytes   int
	started time.Time
}

func newBatcher(key PartitionKey, cfg BatchConfig) *batcher {
	return &batcher{key: key, cfg: cfg, fin: finalization.Empty()}
}

// add appends e to the open batch, returning the completed Batch and
// true if a threshold was crossed.
func (b *batcher) add(e event.Event) (Batch, bool) {
	if len(b.events) == 0 {
		b.started = time.Now()
	}
	b.events = append(b.events, e)
	b.fin = finalization.Merge(b.fin, e.SplitFinalizers())
	b.bytes += e.EstimatedJSONSize()

	if len(b.events) >= b.cfg.maxEvents() {
		return b.take(), true
	}
	if b.cfg.MaxBytes > 0 && b.bytes >= b.cfg.MaxBytes {
		return b.take(), true
	}
	return Batch{}, false
}

// expire flushes the open batch if it has exceeded MaxAge as of now.
func (b *batcher) expire(now time.Time) (Batch, bool) {
	if len(b.events) == 0 {
		return Batch{}, false
	}
	if now.Sub(b.started) < b.cfg.maxAge() {
		return Batch{}, false
	}
	return b.take(), true
}

// flush takes whatever is currently accumulated, regardless of
// threshold, used on shutdown so no event is silently dropped.
func (b *batcher) flush() (Batch, bool) {
	if len(b.events) == 0 {
		return Batch{}, false
	}
	return b.take(), true
}

func (b *batcher) take() Batch {
	batch := Batch{Key: b.key, Events: b.events, Finalizers: b.fin}
	b.events = nil
	b.fin = finalization.Empty()
	b.bytes = 0
	return batch
}
