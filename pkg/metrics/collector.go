package metrics

import "time"

// ComponentStats is one component's buffer-depth snapshot, as reported by
// a running topology (pkg/topology.Runtime implements StatSource).
type ComponentStats struct {
	ComponentID   string
	BufferVariant string
	PendingBytes  uint64
	PendingEvents uint64
}

// StatSource is polled by Collector to refresh buffer-depth gauges that
// the components themselves don't update inline (reading the ledger on
// every send/recv would be wasted work on the hot path).
type StatSource interface {
	ComponentStats() []ComponentStats
}

// Collector periodically samples a running topology's buffer depths and
// publishes them as gauges, the same ticker-driven polling loop the
// teacher's worker package uses for health monitoring.
type Collector struct {
	source   StatSource
	interval time.Duration
	stopCh   chan struct{}
}

// NewCollector creates a collector polling source every interval.
func NewCollector(source StatSource, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{source: source, interval: interval, stopCh: make(chan struct{})}
}

// Start begins polling in a background goroutine.
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop ends the polling loop.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	for _, s := range c.source.ComponentStats() {
		BufferPendingBytes.WithLabelValues(s.ComponentID, s.BufferVariant).Set(float64(s.PendingBytes))
		BufferPendingEvents.WithLabelValues(s.ComponentID, s.BufferVariant).Set(float64(s.PendingEvents))
	}
}
