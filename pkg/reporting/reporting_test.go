package reporting

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"

	"github.com/tbrennan/chronicle/pkg/graph"
	"github.com/tbrennan/chronicle/pkg/store"
	"github.com/tbrennan/chronicle/pkg/types"
)

// assertValidMarkdown confirms goldmark converts the report to non-empty
// HTML without error. goldmark accepts any input as Markdown, so this does
// not detect malformed constructs such as unbalanced emphasis.
func assertValidMarkdown(t *testing.T, md string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, goldmark.Convert([]byte(md), &buf))
	assert.NotEmpty(t, buf.String())
}

func newTestReporter(t *testing.T) (*Reporter, store.Interface, *graph.Graph) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	g := graph.New()
	return New(s, g), s, g
}

func TestExplainWindow_NoActivity(t *testing.T) {
	r, _, _ := newTestReporter(t)
	start := time.Now().Add(-time.Hour)
	end := time.Now()

	out, err := r.ExplainWindow(start, end)
	require.NoError(t, err)
	assert.Contains(t, out, "No activity recorded")
}

func TestExplainWindow_RendersTimelineAndSummary(t *testing.T) {
	r, s, g := newTestReporter(t)
	now := time.Now()

	events := []types.Event{
		{ID: "1", EventType: types.EventFileModify, Subject: "/proj/main.go", Timestamp: now.Add(-30 * time.Minute)},
		{ID: "2", EventType: types.EventGitCommit, Subject: "abc123", Repository: "/proj", Timestamp: now.Add(-29 * time.Minute)},
	}
	for _, e := range events {
		require.NoError(t, s.Insert(e))
		g.AddEvent(e)
	}

	out, err := r.ExplainWindow(now.Add(-time.Hour), now)
	require.NoError(t, err)
	assert.Contains(t, out, "# Activity Report")
	assert.Contains(t, out, "## Activity Timeline")
	assert.Contains(t, out, "Total events:")
	assertValidMarkdown(t, out)
}

func TestTraceSubject_NoActivity(t *testing.T) {
	r, _, _ := newTestReporter(t)
	out, err := r.TraceSubject("/nowhere.go")
	require.NoError(t, err)
	assert.Contains(t, out, "No activity found for")
}

func TestTraceSubject_RendersOverviewAndRecentActivity(t *testing.T) {
	r, s, g := newTestReporter(t)
	now := time.Now()

	e := types.Event{ID: "1", EventType: types.EventFileModify, Subject: "/proj/main.go", Timestamp: now}
	require.NoError(t, s.Insert(e))
	g.AddEvent(e)

	out, err := r.TraceSubject("/proj/main.go")
	require.NoError(t, err)
	assert.Contains(t, out, "# Trace Report: main.go")
	assert.Contains(t, out, "## Overview")
	assert.Contains(t, out, "## Recent Activity")
}

func TestExplainStalls_NoActivity(t *testing.T) {
	r, _, _ := newTestReporter(t)
	out, err := r.ExplainStalls()
	require.NoError(t, err)
	assert.Contains(t, out, "No activity in the last 24 hours")
}

func TestExplainContextSwitches_NoActivity(t *testing.T) {
	r, _, _ := newTestReporter(t)
	out, err := r.ExplainContextSwitches()
	require.NoError(t, err)
	assert.Contains(t, out, "No activity in the last 8 hours")
}
