package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbrennan/chronicle/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleEvent(eventType types.EventType, subject string, ts time.Time) types.Event {
	return types.Event{
		ID:        uuid.NewString(),
		EventType: eventType,
		Timestamp: ts,
		Source:    "test",
		Subject:   subject,
	}
}

func TestInsert_DuplicateIDIsNoOp(t *testing.T) {
	s := openTestStore(t)
	e := sampleEvent(types.EventFileModify, "/a/b.go", time.Now())

	require.NoError(t, s.Insert(e))
	require.NoError(t, s.Insert(e))

	count, err := s.Count(e.Timestamp.Add(-time.Minute), e.Timestamp.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRange_ExactBoundaries(t *testing.T) {
	s := openTestStore(t)
	base := time.Now().Truncate(time.Second)

	before := sampleEvent(types.EventFileModify, "before", base.Add(-time.Hour))
	inRange1 := sampleEvent(types.EventFileModify, "in1", base)
	inRange2 := sampleEvent(types.EventGitCommit, "in2", base.Add(time.Minute))
	after := sampleEvent(types.EventFileModify, "after", base.Add(time.Hour))

	for _, e := range []types.Event{before, inRange1, inRange2, after} {
		require.NoError(t, s.Insert(e))
	}

	got, err := s.Range(base, base.Add(time.Minute), nil, nil, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.ElementsMatch(t, []string{"in1", "in2"}, []string{got[0].Subject, got[1].Subject})
}

func TestRange_FiltersByEventType(t *testing.T) {
	s := openTestStore(t)
	base := time.Now()

	require.NoError(t, s.Insert(sampleEvent(types.EventFileModify, "f1", base)))
	require.NoError(t, s.Insert(sampleEvent(types.EventGitCommit, "g1", base)))

	got, err := s.Range(base.Add(-time.Minute), base.Add(time.Minute), []types.EventType{types.EventGitCommit}, nil, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.EventGitCommit, got[0].EventType)
}

func TestBySubject_PartialMatch(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()
	require.NoError(t, s.Insert(sampleEvent(types.EventFileModify, "/home/user/project/main.go", now)))

	got, err := s.BySubject("project", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestIterate_VisitsInAscendingOrderAndStopsEarly(t *testing.T) {
	s := openTestStore(t)
	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Insert(sampleEvent(types.EventFileModify, string(rune('a'+i)), base.Add(time.Duration(i)*time.Second))))
	}

	var seen []string
	err := s.Iterate(2, func(e types.Event) bool {
		seen = append(seen, e.Subject)
		return len(seen) < 3
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestCountsByType(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()
	require.NoError(t, s.Insert(sampleEvent(types.EventFileModify, "f1", now)))
	require.NoError(t, s.Insert(sampleEvent(types.EventFileModify, "f2", now)))
	require.NoError(t, s.Insert(sampleEvent(types.EventGitCommit, "g1", now)))

	counts, err := s.CountsByType()
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[types.EventFileModify])
	assert.Equal(t, int64(1), counts[types.EventGitCommit])
}

func TestMetadataRoundTrip(t *testing.T) {
	s := openTestStore(t)
	e := sampleEvent(types.EventShellCommand, "git status", time.Now())
	e.Metadata = map[string]string{"shell": "zsh", "best_effort_time": "true"}

	require.NoError(t, s.Insert(e))

	got, err := s.BySubject("git status", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "zsh", got[0].Metadata["shell"])
	assert.Equal(t, "true", got[0].Metadata["best_effort_time"])
}
