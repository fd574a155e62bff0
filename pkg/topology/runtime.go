package topology

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuemby/flowd/pkg/buffer"
	"github.com/cuemby/flowd/pkg/component"
	"github.com/cuemby/flowd/pkg/event"
	"github.com/cuemby/flowd/pkg/log"
	"github.com/cuemby/flowd/pkg/metrics"
	"github.com/rs/zerolog"
)

const defaultEdgeCapacity = 1024

// instance is one running component: its built value and the plumbing
// needed to wire and tear it down.
type instance struct {
	id   component.Key
	kind nodeKind
	impl any

	mu    sync.Mutex
	state State

	outSender buffer.Sender[event.Event] // fanout over every consumer edge
	inCh      chan event.Event           // this component's own inbound edge (nil for sources)

	producers int32 // upstream components feeding inCh, closed once all finish
	closeOnce sync.Once

	batch BatchConfig // sinks only
}

// producerDone decrements the count of upstream producers still feeding
// inCh and closes it once every producer has finished, so a downstream
// transform/sink loop sees a clean end of input instead of blocking past
// its last event.
func (i *instance) producerDone() {
	if i.inCh == nil {
		return
	}
	if atomic.AddInt32(&i.producers, -1) == 0 {
		i.closeOnce.Do(func() { close(i.inCh) })
	}
}

func (i *instance) setState(s State) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state == s {
		return
	}
	if !canTransition(i.state, s) && s != StateFailed {
		return
	}
	i.state = s
	metrics.ComponentState.WithLabelValues(string(i.id), s.String()).Set(1)
}

func (i *instance) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// generation is one complete built-and-running instantiation of a
// Config: every component instance plus the shutdown plumbing and error
// state specific to that instantiation. Reload retires one generation
// while starting the next rather than mutating components in place.
type generation struct {
	cfg       Config
	instances map[component.Key]*instance
	order     []component.Key

	shutdownFn func()
	shutdown   component.ShutdownSignal

	wg      sync.WaitGroup
	errOnce sync.Once
	runErr  error
}

// Runtime is a built, running topology: the current generation plus
// supervision and hot-reload. It implements metrics.StatSource so
// pkg/metrics.Collector can poll buffer depths across every component.
type Runtime struct {
	registry *Registry
	logger   zerolog.Logger

	mu  sync.Mutex
	gen *generation
}

// Build validates cfg, instantiates every component, wires the channel
// fabric between them, and, when healthchecks.require_healthy is set,
// runs healthchecks, without starting any task goroutine yet. Call Run to start the graph.
func Build(ctx context.Context, cfg Config, reg *Registry) (*Runtime, error) {
	g, err := buildGeneration(ctx, cfg, reg)
	if err != nil {
		return nil, err
	}
	return &Runtime{registry: reg, logger: log.WithComponent("topology"), gen: g}, nil
}

func buildGeneration(ctx context.Context, cfg Config, reg *Registry) (*generation, error) {
	nodes, err := buildGraph(cfg, reg)
	if err != nil {
		return nil, err
	}

	shutdown, shutdownFn := component.NewShutdownSignal()
	g := &generation{
		cfg:        cfg,
		instances:  make(map[component.Key]*instance, len(nodes)),
		order:      topoOrder(nodes),
		shutdownFn: shutdownFn,
		shutdown:   shutdown,
	}

	for _, id := range g.order {
		n := nodes[id]
		inst := &instance{id: id, kind: n.kind, state: StatePending}
		if n.kind != nodeSource {
			inst.inCh = make(chan event.Event, defaultEdgeCapacity)
		}
		g.instances[id] = inst

		var buildErr error
		switch n.kind {
		case nodeSource:
			f, ok := reg.source[cfg.Sources[string(id)].Type]
			if !ok {
				buildErr = fmt.Errorf("unknown source type %q", cfg.Sources[string(id)].Type)
				break
			}
			inst.impl, buildErr = f.f.Build(id, cfg.Sources[string(id)].Params)
		case nodeTransform:
			f, ok := reg.transform[cfg.Transforms[string(id)].Type]
			if !ok {
				buildErr = fmt.Errorf("unknown transform type %q", cfg.Transforms[string(id)].Type)
				break
			}
			inst.impl, buildErr = f.f.Build(id, cfg.Transforms[string(id)].Params)
			if buildErr == nil {
				switch inst.impl.(type) {
				case component.FunctionTransform, component.TaskTransform:
				default:
					buildErr = fmt.Errorf("built value implements neither FunctionTransform nor TaskTransform")
				}
			}
		case nodeSink:
			f, ok := reg.sink[cfg.Sinks[string(id)].Type]
			if !ok {
				buildErr = fmt.Errorf("unknown sink type %q", cfg.Sinks[string(id)].Type)
				break
			}
			inst.impl, buildErr = f.f.Build(id, cfg.Sinks[string(id)].Params)
			inst.batch = cfg.Sinks[string(id)].Batch
		}
		if buildErr != nil {
			return nil, fmt.Errorf("topology: build %s: %w", id, buildErr)
		}
	}

	// Wire producer fanout senders now that every consumer's inCh exists,
	// and count how many producers feed each consumer so its inCh closes
	// only once every one of them has finished.
	for _, id := range g.order {
		var targets []buffer.Sender[event.Event]
		for _, other := range nodes {
			for _, ref := range other.inputs {
				if ref.ComponentID == id {
					consumer := g.instances[other.id]
					atomic.AddInt32(&consumer.producers, 1)
					targets = append(targets, chanSender{consumer})
				}
			}
		}
		g.instances[id].outSender = fanoutSender{targets: targets}
	}

	if cfg.Healthchecks.RequireHealthy {
		if err := runHealthchecks(ctx, g); err != nil {
			return nil, err
		}
	}

	return g, nil
}

func runHealthchecks(ctx context.Context, g *generation) error {
	var wg sync.WaitGroup
	errs := make(chan error, len(g.instances))
	for id, inst := range g.instances {
		hc, ok := inst.impl.(component.Healthchecker)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(id component.Key, hc component.Healthchecker) {
			defer wg.Done()
			if err := hc.Healthcheck(ctx); err != nil {
				errs <- fmt.Errorf("healthcheck %s: %w", id, err)
			}
		}(id, hc)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		return err
	}
	return nil
}

// Run starts the current generation's task goroutines and blocks until
// every generation (the original graph, plus any Reload replaced it
// with) has fully drained.
func (rt *Runtime) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rt.mu.Lock()
	g := rt.gen
	rt.mu.Unlock()
	rt.startGeneration(runCtx, cancel, g)

	for {
		g.wg.Wait()
		rt.mu.Lock()
		current := rt.gen
		rt.mu.Unlock()
		if current == g {
			return g.runErr
		}
		g = current
	}
}

func (rt *Runtime) startGeneration(ctx context.Context, cancel context.CancelFunc, g *generation) {
	for _, id := range g.order {
		inst := g.instances[id]
		inst.setState(StateStarting)
		g.wg.Add(1)
		go rt.runInstance(ctx, cancel, g, inst)
	}
}

func (rt *Runtime) runInstance(ctx context.Context, cancel context.CancelFunc, g *generation, inst *instance) {
	defer g.wg.Done()
	inst.setState(StateRunning)

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		switch inst.kind {
		case nodeSource:
			src := inst.impl.(component.Source)
			ackStream := make(chan component.Ack)
			err = src.Run(ctx, edgeSink{inst.outSender}, g.shutdown, ackStream)
		case nodeTransform:
			err = rt.runTransform(ctx, inst)
		case nodeSink:
			err = rt.runSink(ctx, inst)
		}
	}()

	if err != nil && err != context.Canceled {
		inst.setState(StateFailed)
		rt.logger.Error().Err(err).Str("component_id", string(inst.id)).Msg("component exited with error")
		g.errOnce.Do(func() {
			g.runErr = fmt.Errorf("component %s: %w", inst.id, err)
			cancel()
		})
		return
	}
	inst.outSender.Close()
	inst.setState(StateDraining)
	inst.setState(StateStopped)
}

func (rt *Runtime) runTransform(ctx context.Context, inst *instance) error {
	switch t := inst.impl.(type) {
	case component.FunctionTransform:
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case e, ok := <-inst.inCh:
				if !ok {
					return nil
				}
				for _, out := range t.Transform(e) {
					if err := inst.outSender.Send(ctx, out); err != nil {
						return err
					}
				}
			}
		}
	case component.TaskTransform:
		return t.Run(ctx, inst.inCh, edgeSink{inst.outSender})
	default:
		return fmt.Errorf("component %s: built value implements neither FunctionTransform nor TaskTransform", inst.id)
	}
}

// runSink groups inst.inCh into event.Array batches per the sink's
// BatchConfig and drives the sink's Run loop over the resulting channel.
// This is the adapter between the per-event channel fabric (C3) and the
// sink contract's pre-batched input (C5); the driver pipeline (C7)
// handles partitioning and encoding once a batch is handed to it.
func (rt *Runtime) runSink(ctx context.Context, inst *instance) error {
	sk := inst.impl.(component.Sink)
	arrCh := make(chan event.Array)

	batchErrCh := make(chan error, 1)
	go func() {
		batchErrCh <- rt.batchEvents(ctx, inst, arrCh)
		close(arrCh)
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	var sinkErr error
	go func() {
		defer wg.Done()
		sinkErr = sk.Run(ctx, arrCh)
	}()

	batchErr := <-batchErrCh
	wg.Wait()
	if sinkErr != nil {
		return sinkErr
	}
	return batchErr
}

func (rt *Runtime) batchEvents(ctx context.Context, inst *instance, arrCh chan event.Array) error {
	maxEvents := inst.batch.MaxEvents
	if maxEvents <= 0 {
		maxEvents = 500
	}
	timeout := time.Duration(inst.batch.TimeoutSec * float64(time.Second))
	if timeout <= 0 {
		timeout = time.Second
	}

	var buf []event.Event
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		arr, err := event.NewArray(buf...)
		buf = nil
		if err != nil {
			return err
		}
		select {
		case arrCh <- arr:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		select {
		case <-ctx.Done():
			_ = flush()
			return ctx.Err()
		case e, ok := <-inst.inCh:
			if !ok {
				return flush()
			}
			buf = append(buf, e)
			if len(buf) >= maxEvents {
				if err := flush(); err != nil {
					return err
				}
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(timeout)
			}
		case <-timer.C:
			if err := flush(); err != nil {
				return err
			}
			timer.Reset(timeout)
		}
	}
}

// Shutdown fires the current generation's shutdown signal, then waits
// for it to drain bounded by its configured grace period.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	rt.mu.Lock()
	g := rt.gen
	rt.mu.Unlock()
	return shutdownGeneration(ctx, g)
}

func shutdownGeneration(ctx context.Context, g *generation) error {
	g.shutdownFn()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	grace := time.Duration(g.cfg.graceSeconds() * float64(time.Second))
	select {
	case <-done:
		return nil
	case <-time.After(grace):
		return fmt.Errorf("topology: shutdown did not drain within %s", grace)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reload replaces the running graph with one built from newCfg: it
// builds and starts every component of the new config as an independent
// generation, swaps it in as current, then drains the previous
// generation behind it, bounded by its grace period. Run's blocking
// Wait transparently follows the swap since it re-reads rt.gen on every
// pass.
//
// This is a full blue-green swap rather than a per-component diff:
// simpler to reason about correctly than incremental add/remove/keep,
// at the cost of briefly running every component twice during the
// handover. Components that hold external resources (listening sockets,
// exclusive files) must tolerate that overlap or refuse the second
// bind, surfacing as a Reload error.
func (rt *Runtime) Reload(ctx context.Context, newCfg Config) error {
	next, err := buildGeneration(ctx, newCfg, rt.registry)
	if err != nil {
		return fmt.Errorf("topology: reload: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	rt.startGeneration(runCtx, cancel, next)

	rt.mu.Lock()
	old := rt.gen
	rt.gen = next
	rt.mu.Unlock()

	rt.logger.Info().Msg("topology reload: new generation started, draining previous generation")
	return shutdownGeneration(ctx, old)
}

// ComponentStats implements metrics.StatSource, reporting each edge's
// queue depth as a proxy for buffer pending-events.
func (rt *Runtime) ComponentStats() []metrics.ComponentStats {
	rt.mu.Lock()
	g := rt.gen
	rt.mu.Unlock()

	stats := make([]metrics.ComponentStats, 0, len(g.instances))
	for id, inst := range g.instances {
		if inst.inCh == nil {
			continue
		}
		stats = append(stats, metrics.ComponentStats{
			ComponentID:   string(id),
			BufferVariant: "memory",
			PendingEvents: uint64(len(inst.inCh)),
		})
	}
	return stats
}

// ComponentStates reports every component's current lifecycle state,
// for the introspection API (pkg/api.Topology).
func (rt *Runtime) ComponentStates() map[string]string {
	rt.mu.Lock()
	g := rt.gen
	rt.mu.Unlock()

	states := make(map[string]string, len(g.instances))
	for id, inst := range g.instances {
		states[string(id)] = inst.State().String()
	}
	return states
}

// chanSender feeds one consumer instance's inCh; Close only marks this
// producer done rather than closing the channel outright, since more
// than one producer may share a consumer.
type chanSender struct{ consumer *instance }

func (c chanSender) Send(ctx context.Context, e event.Event) error {
	select {
	case c.consumer.inCh <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
func (c chanSender) Close() { c.consumer.producerDone() }
