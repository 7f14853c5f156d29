package metrics

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbrennan/chronicle/pkg/graph"
	"github.com/tbrennan/chronicle/pkg/store"
	"github.com/tbrennan/chronicle/pkg/types"
)

func TestCollector_CollectUpdatesGauges(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Insert(types.Event{
		ID:        "evt-1",
		EventType: types.EventFileModify,
		Timestamp: time.Now(),
		Subject:   "/tmp/a.go",
	}))

	g := graph.New()
	g.AddEvent(types.Event{EventType: types.EventFileModify, Subject: "/tmp/a.go", Timestamp: time.Now()})

	c := NewCollector(s, g)
	c.collect()

	assert.Equal(t, float64(1), testutil.ToFloat64(StoreEventsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(GraphNodesTotal))
}
