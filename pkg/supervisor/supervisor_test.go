package supervisor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbrennan/chronicle/pkg/collector"
	"github.com/tbrennan/chronicle/pkg/events"
	"github.com/tbrennan/chronicle/pkg/graph"
	"github.com/tbrennan/chronicle/pkg/store"
	"github.com/tbrennan/chronicle/pkg/types"
)

// fakeCollector emits one event immediately then blocks until ctx is done.
type fakeCollector struct {
	name string
	ev   types.Event
}

func (f *fakeCollector) Name() string { return f.name }

func (f *fakeCollector) Run(ctx context.Context, sink collector.Sink) error {
	sink(f.ev)
	<-ctx.Done()
	return nil
}

// failingCollector returns an error immediately without touching the sink.
type failingCollector struct{ name string }

func (f *failingCollector) Name() string { return f.name }

func (f *failingCollector) Run(ctx context.Context, sink collector.Sink) error {
	return errors.New("boom")
}

func newTestSupervisor(t *testing.T) (*Supervisor, store.Interface, *graph.Graph) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	g := graph.New()
	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)

	graphPath := filepath.Join(t.TempDir(), "graph.bolt")
	sup := New(s, g, broker, graphPath, zerolog.Nop())
	return sup, s, g
}

func TestSupervisor_Run_DeliversEventsFromEachCollectorToStoreAndGraph(t *testing.T) {
	sup, s, g := newTestSupervisor(t)

	now := time.Now()
	sup.Register(&fakeCollector{name: "fs", ev: types.Event{
		ID: "1", EventType: types.EventFileModify, Subject: "/a.go", Timestamp: now,
	}})
	sup.Register(&fakeCollector{name: "term", ev: types.Event{
		ID: "2", EventType: types.EventShellCommand, Subject: "go test", Timestamp: now,
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := sup.Run(ctx)
	require.NoError(t, err)

	events, err := s.Recent(time.Hour, 10)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, 2, g.Stats().Nodes)
}

func TestSupervisor_Run_OneCollectorFailingDoesNotStopOthers(t *testing.T) {
	sup, s, _ := newTestSupervisor(t)

	sup.Register(&failingCollector{name: "broken"})
	sup.Register(&fakeCollector{name: "fs", ev: types.Event{
		ID: "1", EventType: types.EventFileModify, Subject: "/a.go", Timestamp: time.Now(),
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, sup.Run(ctx))

	events, err := s.Recent(time.Hour, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
