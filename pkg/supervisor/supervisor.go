package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbrennan/chronicle/pkg/collector"
	"github.com/tbrennan/chronicle/pkg/events"
	"github.com/tbrennan/chronicle/pkg/graph"
	"github.com/tbrennan/chronicle/pkg/metrics"
	"github.com/tbrennan/chronicle/pkg/store"
	"github.com/tbrennan/chronicle/pkg/types"
)

const (
	graphSaveInterval = 300 * time.Second
	statusLogInterval = 60 * time.Second
)

// Supervisor owns the collector set and the single sink every collector
// delivers events to. Each collector runs in its own goroutine and calls
// the sink directly rather than through a channel, keeping a collector's
// own events in the order it produced them without an extra hop —
// adapted from the constructor-failure-isolation and
// ticker+context.CancelFunc lifecycle the teacher used for its worker
// health monitors.
type Supervisor struct {
	store     store.Interface
	graph     *graph.Graph
	broker    *events.Broker
	graphPath string
	log       zerolog.Logger

	collectors []collector.Collector

	mu         sync.Mutex
	cancelFns  map[string]context.CancelFunc
	eventCount uint64
}

// New builds a supervisor over an already-open store and graph. Load the
// graph from disk before calling New if a prior run's graph should seed
// the in-memory one.
func New(s store.Interface, g *graph.Graph, broker *events.Broker, graphPath string, log zerolog.Logger) *Supervisor {
	return &Supervisor{
		store:     s,
		graph:     g,
		broker:    broker,
		graphPath: graphPath,
		log:       log,
		cancelFns: make(map[string]context.CancelFunc),
	}
}

// Register adds a collector to the set. Call before Run.
func (s *Supervisor) Register(c collector.Collector) {
	s.collectors = append(s.collectors, c)
}

// collectorLog returns a child logger tagged with the collector's name.
func (s *Supervisor) collectorLog(name string) zerolog.Logger {
	return s.log.With().Str("collector", name).Logger()
}

// Run starts every registered collector plus the periodic graph-save and
// status-log tickers, blocking until ctx is cancelled. A per-collector
// failure is logged and does not bring down the others, matching the
// daemon's try/except-per-collector startup semantics.
func (s *Supervisor) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	for _, c := range s.collectors {
		collectorCtx, cancel := context.WithCancel(ctx)
		s.mu.Lock()
		s.cancelFns[c.Name()] = cancel
		s.mu.Unlock()

		metrics.CollectorsActive.Inc()
		wg.Add(1)
		go func(c collector.Collector, collectorCtx context.Context) {
			defer wg.Done()
			defer metrics.CollectorsActive.Dec()
			if err := c.Run(collectorCtx, s.sink(c.Name())); err != nil {
				metrics.CollectorErrorsTotal.WithLabelValues(c.Name()).Inc()
				s.collectorLog(c.Name()).Error().Err(err).Msg("collector exited with error")
			}
		}(c, collectorCtx)
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		s.graphSaveLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.statusLoop(ctx)
	}()

	<-ctx.Done()
	s.Stop()
	wg.Wait()

	if err := s.graph.Save(s.graphPath); err != nil {
		s.log.Error().Err(err).Msg("final graph save failed")
		return err
	}
	return nil
}

// Stop cancels every collector's context individually, logging but not
// failing on any one collector's shutdown.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, cancel := range s.cancelFns {
		s.collectorLog(name).Debug().Msg("stopping collector")
		cancel()
	}
}

// sink returns the closure a given collector delivers events to: insert
// into the store, fold into the graph, publish to live subscribers, bump
// metrics. It is called synchronously from the collector's own goroutine.
func (s *Supervisor) sink(source string) collector.Sink {
	return func(e types.Event) {
		if err := s.store.Insert(e); err != nil {
			s.collectorLog(source).Warn().Err(err).Msg("failed to persist event")
			return
		}
		s.graph.AddEvent(e)
		s.broker.Publish(e)
		metrics.EventsTotal.WithLabelValues(source, string(e.EventType)).Inc()

		s.mu.Lock()
		s.eventCount++
		s.mu.Unlock()
	}
}

func (s *Supervisor) graphSaveLoop(ctx context.Context) {
	ticker := time.NewTicker(graphSaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			timer := metrics.NewTimer()
			if err := s.graph.Save(s.graphPath); err != nil {
				s.log.Error().Err(err).Msg("periodic graph save failed")
				continue
			}
			timer.ObserveDuration(metrics.GraphSaveDuration)
			s.log.Debug().Msg("activity graph saved")
		}
	}
}

func (s *Supervisor) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(statusLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.logStatus()
		}
	}
}

func (s *Supervisor) logStatus() {
	s.mu.Lock()
	count := s.eventCount
	s.mu.Unlock()

	stats := s.graph.Stats()
	s.log.Info().
		Uint64("events_since_start", count).
		Int("graph_nodes", stats.Nodes).
		Int("graph_edges", stats.Edges).
		Msg("chronicle status")
}
