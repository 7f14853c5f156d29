package metrics

import (
	"time"

	"github.com/tbrennan/chronicle/pkg/graph"
	"github.com/tbrennan/chronicle/pkg/store"
)

// Collector periodically samples the store and graph into the gauges
// defined in metrics.go so Registry has a fresh snapshot without every
// collector touching Prometheus directly.
type Collector struct {
	store  store.Interface
	graph  *graph.Graph
	stopCh chan struct{}
}

// NewCollector builds a metrics collector over the given store and graph.
func NewCollector(s store.Interface, g *graph.Graph) *Collector {
	return &Collector{
		store:  s,
		graph:  g,
		stopCh: make(chan struct{}),
	}
}

// Start begins sampling on a background ticker.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
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

// Stop halts sampling.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectStoreMetrics()
	c.collectGraphMetrics()
}

func (c *Collector) collectStoreMetrics() {
	count, err := c.store.Count(time.Time{}, time.Now())
	if err != nil {
		return
	}
	StoreEventsTotal.Set(float64(count))
}

func (c *Collector) collectGraphMetrics() {
	stats := c.graph.Stats()
	GraphNodesTotal.Set(float64(stats.Nodes))
	GraphEdgesTotal.Set(float64(stats.Edges))
}
