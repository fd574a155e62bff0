// Package driver implements the generic sink pipeline (C7) every
// network sink is built on: partition events into destinations, batch
// per partition against size/count/age thresholds, encode each batch,
// and hand it to a retrying, rate-limited, concurrency-bounded request
// service. Concrete sinks (HTTP, S3, Kafka, ...) supply a Partitioner,
// an Encoder, and a RequestFunc; this package supplies everything
// around them.
package driver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/cuemby/flowd/pkg/event"
	"github.com/cuemby/flowd/pkg/finalization"
	"github.com/cuemby/flowd/pkg/log"
	"github.com/cuemby/flowd/pkg/metrics"
	"github.com/rs/zerolog"
)

// expiryTick bounds how late a batch's max-age threshold is noticed;
// the batcher itself tracks the deadline, this just sets how often the
// driver checks every open partition against it.
const expiryTick = 50 * time.Millisecond

// shardCount is how many concurrent workers process completed batches.
// Every batch for a given PartitionKey always hashes to the same shard,
// so ordering within one partition is preserved even though different
// partitions are serviced concurrently.
const shardCount = 8

func shardFor(key PartitionKey) int {
	return int(xxhash.Sum64String(string(key)) % shardCount)
}

// PartitionKey groups events bound for the same destination (an S3
// prefix, a Kafka topic, an Elastic index) into the same batch.
type PartitionKey string

// Partitioner assigns each event a destination key.
type Partitioner interface {
	Partition(e event.Event) PartitionKey
}

// PartitionerFunc adapts a plain function to a Partitioner.
type PartitionerFunc func(e event.Event) PartitionKey

func (f PartitionerFunc) Partition(e event.Event) PartitionKey { return f(e) }

// SinglePartition routes every event to the same destination, for sinks
// with no natural partitioning (a single HTTP endpoint, a single file).
var SinglePartition Partitioner = PartitionerFunc(func(event.Event) PartitionKey { return "" })

// Encoder turns a batch into a request payload plus any metadata the
// request function needs to interpret it (e.g. a compression flag to
// set as a header).
type Encoder interface {
	Encode(batch Batch) (Request, error)
}

// Request is an encoded batch ready for the service layer.
type Request struct {
	PartitionKey PartitionKey
	Body         []byte
	Metadata     map[string]string
}

// RequestFunc performs one network attempt for a Request. It must
// return a RetriableError to mark an error as eligible for the retry
// policy; any other non-nil error is treated as terminal (Rejected).
type RequestFunc func(ctx context.Context, req Request) error

// Driver wires partition -> batch -> encode -> service -> finalize for
// one sink. Build it with New and feed it event.Event one at a time
// from the topology runtime's edge channel through Run.
type Driver struct {
	cfg         Config
	partitioner Partitioner
	encoder     Encoder
	request     RequestFunc
	svc         *service
	logger      zerolog.Logger

	batchers map[PartitionKey]*batcher
}

// Config bundles the per-sink knobs from the `batch`/`request` config
// blocks, decoded from topology.BatchConfig/RequestConfig by the
// concrete sink factory that builds a Driver.
type Config struct {
	ComponentID string
	Batch       BatchConfig
	Request     RequestConfig
}

// New builds a Driver. cfg.ComponentID labels metrics and log lines.
func New(cfg Config, p Partitioner, e Encoder, r RequestFunc) *Driver {
	if p == nil {
		p = SinglePartition
	}
	return &Driver{
		cfg:         cfg,
		partitioner: p,
		encoder:     e,
		request:     r,
		svc:         newService(cfg.ComponentID, cfg.Request),
		logger:      log.WithComponent(cfg.ComponentID),
		batchers:    make(map[PartitionKey]*batcher),
	}
}

// Run consumes events from in, partitions and batches them, and drives
// each completed batch through encode+service+finalize. Batches from
// different partitions are processed concurrently across shardCount
// workers (sharded by a hash of the partition key); batches sharing a
// partition key always land on the same worker and so are serviced in
// arrival order. Run returns when in closes, after every in-flight
// batch has been flushed and finalized.
func (d *Driver) Run(ctx context.Context, in <-chan event.Event) error {
	out := make(chan Batch)
	errCh := make(chan error, 1)

	shards := make([]chan Batch, shardCount)
	for i := range shards {
		shards[i] = make(chan Batch)
	}

	var wg sync.WaitGroup
	wg.Add(shardCount)
	for i := 0; i < shardCount; i++ {
		go func(ch <-chan Batch) {
			defer wg.Done()
			for batch := range ch {
				if err := d.process(ctx, batch); err != nil && ctx.Err() == nil {
					d.logger.Error().Err(err).Str("partition", string(batch.Key)).Msg("sink batch processing error")
				}
			}
		}(shards[i])
	}

	go func() {
		errCh <- d.fanInPartitions(ctx, in, out)
		close(out)
	}()

	for batch := range out {
		shards[shardFor(batch.Key)] <- batch
	}
	for _, ch := range shards {
		close(ch)
	}
	wg.Wait()
	return <-errCh
}

// fanInPartitions routes each event to its partition's batcher and
// forwards completed batches to out. One goroutine drives every
// partition's timers so no per-partition goroutine leak is possible.
func (d *Driver) fanInPartitions(ctx context.Context, in <-chan event.Event, out chan<- Batch) error {
	ticker := time.NewTicker(expiryTick)
	defer ticker.Stop()

	defer func() {
		for _, b := range d.batchers {
			if batch, ok := b.flush(); ok {
				select {
				case out <- batch:
				case <-ctx.Done():
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-in:
			if !ok {
				return nil
			}
			key := d.partitioner.Partition(e)
			b, exists := d.batchers[key]
			if !exists {
				b = newBatcher(key, d.cfg.Batch)
				d.batchers[key] = b
			}
			if batch, ready := b.add(e); ready {
				select {
				case out <- batch:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		case now := <-ticker.C:
			for _, b := range d.batchers {
				if batch, ready := b.expire(now); ready {
					select {
					case out <- batch:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}
		}
	}
}

// process encodes and services one batch, then finalizes it.
func (d *Driver) process(ctx context.Context, batch Batch) error {
	req, err := d.safeEncode(batch)
	if err != nil {
		batch.Finalizers.UpdateStatus(finalization.Errored)
		batch.Finalizers.ReleaseAll()
		return fmt.Errorf("encode partition %q: %w", batch.Key, err)
	}

	outcome, err := d.svc.Do(ctx, req, d.request)
	status := outcomeStatus(outcome, err)
	metrics.SinkBatchesTotal.WithLabelValues(d.cfg.ComponentID, status.String()).Inc()
	batch.Finalizers.UpdateStatus(status)
	batch.Finalizers.ReleaseAll()
	if err != nil {
		return fmt.Errorf("send partition %q: %w", batch.Key, err)
	}
	return nil
}

func (d *Driver) safeEncode(batch Batch) (req Request, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("encoder panic: %v", r)
		}
	}()
	return d.encoder.Encode(batch)
}

func outcomeStatus(o requestOutcome, err error) finalization.EventStatus {
	switch o {
	case outcomeDelivered:
		return finalization.Delivered
	case outcomeRejected:
		return finalization.Rejected
	default:
		if err != nil {
			return finalization.Errored
		}
		return finalization.Delivered
	}
}
