package graph

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbrennan/chronicle/pkg/types"
)

func TestAddWindow_CreatesEdgesBetweenAllPairs(t *testing.T) {
	g := New()
	now := time.Now()

	w := types.ActivityWindow{
		StartTime: now,
		EndTime:   now,
		Events: []types.Event{
			{EventType: types.EventFileModify, Subject: "/repo/main.go", Timestamp: now},
			{EventType: types.EventGitCommit, Repository: "/repo", Timestamp: now},
			{EventType: types.EventShellCommand, Subject: "go test ./...", Timestamp: now},
		},
	}
	g.AddWindow(w)

	fileID := types.NodeID(string(types.NodeKindFile), "/repo/main.go")
	repoID := types.NodeID(string(types.NodeKindRepo), "/repo")
	cmdID := types.NodeID(string(types.NodeKindCommand), "go")

	stats := g.Stats()
	assert.Equal(t, 3, stats.Nodes)
	assert.Equal(t, 3, stats.Edges, "3 nodes fully connected means 3 edges")

	info := g.Info(fileID)
	require.NotNil(t, info)
	assert.Equal(t, 2, info.Degree)

	neighbors := g.Neighbors(fileID, 1, 1)
	var neighborIDs []string
	for _, nw := range neighbors {
		neighborIDs = append(neighborIDs, nw.NodeID)
	}
	assert.ElementsMatch(t, []string{repoID, cmdID}, neighborIDs)
}

func TestAddWindow_RepeatedCooccurrenceIncrementsWeight(t *testing.T) {
	g := New()
	now := time.Now()

	for i := 0; i < 3; i++ {
		w := types.ActivityWindow{
			StartTime: now,
			EndTime:   now.Add(time.Duration(i) * time.Minute),
			Events: []types.Event{
				{EventType: types.EventFileModify, Subject: "/repo/a.go", Timestamp: now},
				{EventType: types.EventFileModify, Subject: "/repo/b.go", Timestamp: now},
			},
		}
		g.AddWindow(w)
	}

	aID := types.NodeID(string(types.NodeKindFile), "/repo/a.go")
	neighbors := g.Neighbors(aID, 1, 1)
	require.Len(t, neighbors, 1)
	assert.Equal(t, 3, neighbors[0].Weight)
}

func TestAddWindow_BrowserVisitContributesOnlyDomainNodeToEdges(t *testing.T) {
	g := New()
	now := time.Now()

	w := types.ActivityWindow{
		StartTime: now,
		EndTime:   now,
		Events: []types.Event{
			{EventType: types.EventFileModify, Subject: "/repo/main.go", Timestamp: now},
			{EventType: types.EventShellCommand, Subject: "go test ./...", Timestamp: now},
			{EventType: types.EventBrowserVisit, Subject: "https://example.com/path", Timestamp: now},
		},
	}
	g.AddWindow(w)

	stats := g.Stats()
	assert.Equal(t, 3, stats.Edges, "the url node must not participate in edges alongside its domain node")

	urlID := types.NodeID(string(types.NodeKindURL), "https://example.com/path")
	domainID := types.NodeID(string(types.NodeKindDomain), "example.com")

	urlInfo := g.Info(urlID)
	require.NotNil(t, urlInfo)
	assert.Equal(t, 0, urlInfo.Degree, "the url node exists but has no edges")

	domainInfo := g.Info(domainID)
	require.NotNil(t, domainInfo)
	assert.Equal(t, 2, domainInfo.Degree)
}

func TestBrowserVisit_CreatesURLAndDomainNodes(t *testing.T) {
	g := New()
	now := time.Now()
	g.AddEvent(types.Event{
		EventType: types.EventBrowserVisit,
		Subject:   "https://example.com/path",
		Timestamp: now,
	})

	urlID := types.NodeID(string(types.NodeKindURL), "https://example.com/path")
	domainID := types.NodeID(string(types.NodeKindDomain), "example.com")

	assert.NotNil(t, g.Info(urlID))
	assert.NotNil(t, g.Info(domainID))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	g := New()
	now := time.Now()
	g.AddWindow(types.ActivityWindow{
		StartTime: now,
		EndTime:   now,
		Events: []types.Event{
			{EventType: types.EventFileModify, Subject: "/repo/a.go", Timestamp: now},
			{EventType: types.EventGitCommit, Repository: "/repo", Timestamp: now},
		},
	})

	path := filepath.Join(t.TempDir(), "graph.bolt")
	require.NoError(t, g.Save(path))

	loaded := New()
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, g.Stats(), loaded.Stats())
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	g := New()
	err := g.Load(filepath.Join(t.TempDir(), "nonexistent.bolt"))
	require.NoError(t, err)
	assert.Equal(t, 0, g.Stats().Nodes)
}

func TestFind_CaseInsensitiveSubstring(t *testing.T) {
	g := New()
	g.AddEvent(types.Event{EventType: types.EventFileModify, Subject: "/Repo/Main.go", Timestamp: time.Now()})

	matches := g.Find("main")
	assert.Len(t, matches, 1)
}

func TestClear_RemovesEverything(t *testing.T) {
	g := New()
	g.AddEvent(types.Event{EventType: types.EventFileModify, Subject: "/a", Timestamp: time.Now()})
	require.Equal(t, 1, g.Stats().Nodes)

	g.Clear()
	assert.Equal(t, 0, g.Stats().Nodes)
}
