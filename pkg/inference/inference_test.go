package inference

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbrennan/chronicle/pkg/types"
)

func at(base time.Time, minutes int) time.Time {
	return base.Add(time.Duration(minutes) * time.Minute)
}

func TestWindows_SplitsOnGapThreshold(t *testing.T) {
	base := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	events := []types.Event{
		{ID: "1", EventType: types.EventFileModify, Subject: "/a.go", Timestamp: at(base, 0)},
		{ID: "2", EventType: types.EventFileModify, Subject: "/a.go", Timestamp: at(base, 2)},
		{ID: "3", EventType: types.EventFileModify, Subject: "/b.go", Timestamp: at(base, 20)},
	}

	windows := Windows(events, 5*time.Minute)
	require.Len(t, windows, 2)
	assert.Len(t, windows[0].Events, 2)
	assert.Len(t, windows[1].Events, 1)
}

func TestWindows_SortsUnsortedInput(t *testing.T) {
	base := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	events := []types.Event{
		{ID: "2", EventType: types.EventFileModify, Subject: "/a.go", Timestamp: at(base, 2)},
		{ID: "1", EventType: types.EventFileModify, Subject: "/a.go", Timestamp: at(base, 0)},
	}

	windows := Windows(events, 5*time.Minute)
	require.Len(t, windows, 1)
	assert.Equal(t, "1", windows[0].Events[0].ID)
	assert.Equal(t, "2", windows[0].Events[1].ID)
}

func TestInferTask_CodingRequiresFileModify(t *testing.T) {
	w := types.ActivityWindow{Events: []types.Event{
		{EventType: types.EventFileModify, ProcessName: "code"},
		{EventType: types.EventGitCommit},
	}}
	label, confidence := InferTask(w)
	assert.Equal(t, "coding", label)
	assert.InDelta(t, 0.75, confidence, 0.001)
}

func TestInferTask_ResearchPenalizedBelowMinBrowserVisits(t *testing.T) {
	w := types.ActivityWindow{Events: []types.Event{
		{EventType: types.EventBrowserVisit},
	}}
	label, confidence := InferTask(w)
	assert.Equal(t, "research", label)
	assert.InDelta(t, 0.25, confidence, 0.001)
}

func TestInferTask_ResearchFullConfidenceWithEnoughVisits(t *testing.T) {
	w := types.ActivityWindow{Events: []types.Event{
		{EventType: types.EventBrowserVisit},
		{EventType: types.EventBrowserVisit},
		{EventType: types.EventBrowserVisit},
	}}
	label, confidence := InferTask(w)
	assert.Equal(t, "research", label)
	assert.InDelta(t, 0.5, confidence, 0.001)
}

func TestInferTask_DefaultsToGeneralActivity(t *testing.T) {
	w := types.ActivityWindow{Events: []types.Event{
		{EventType: types.EventProcessActive, ProcessName: "slack"},
	}}
	label, confidence := InferTask(w)
	assert.Equal(t, "general_activity", label)
	assert.InDelta(t, 0.3, confidence, 0.001)
}

func TestKeySubjects_RepositoryGetsBoostAndTopFiveOrdering(t *testing.T) {
	w := types.ActivityWindow{Events: []types.Event{
		{EventType: types.EventGitCommit, Subject: "abc123", Repository: "/home/u/proj"},
		{EventType: types.EventFileModify, Subject: "/home/u/proj/main.go"},
		{EventType: types.EventBrowserVisit, Subject: "example.com"},
	}}

	subjects := KeySubjects(w)
	require.NotEmpty(t, subjects)
	assert.Equal(t, "/home/u/proj", subjects[0])
}

func TestAnalyze_FillsInWindowFields(t *testing.T) {
	base := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	windows := []types.ActivityWindow{
		{StartTime: base, EndTime: base, Events: []types.Event{
			{EventType: types.EventFileModify, Subject: "/a.go", Timestamp: base},
		}},
	}
	Analyze(windows)
	assert.Equal(t, "coding", windows[0].TaskLabel)
	assert.NotZero(t, windows[0].TaskConfidence)
}

func TestContextSwitches_DetectsSwitchOnNoOverlapOrLongGap(t *testing.T) {
	base := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	windows := []types.ActivityWindow{
		{StartTime: base, EndTime: at(base, 1), TaskLabel: "coding", KeySubjects: []string{"/proj/a.go"}},
		{StartTime: at(base, 2), EndTime: at(base, 3), TaskLabel: "research", KeySubjects: []string{"example.com"}},
	}
	switches := ContextSwitches(windows)
	require.Len(t, switches, 1)
	assert.Contains(t, switches[0].Description, "Switched from coding to research")
}

func TestContextSwitches_NoSwitchWhenSameLabel(t *testing.T) {
	base := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	windows := []types.ActivityWindow{
		{StartTime: base, EndTime: at(base, 1), TaskLabel: "coding", KeySubjects: []string{"/proj/a.go"}},
		{StartTime: at(base, 2), EndTime: at(base, 3), TaskLabel: "coding", KeySubjects: []string{"/proj/a.go"}},
	}
	assert.Empty(t, ContextSwitches(windows))
}

func TestContextSwitches_NoSwitchWhenOverlapAndShortGap(t *testing.T) {
	base := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	windows := []types.ActivityWindow{
		{StartTime: base, EndTime: at(base, 1), TaskLabel: "coding", KeySubjects: []string{"/proj/a.go"}},
		{StartTime: at(base, 2), EndTime: at(base, 3), TaskLabel: "git_workflow", KeySubjects: []string{"/proj/a.go"}},
	}
	assert.Empty(t, ContextSwitches(windows))
}

func TestStalls_FlagsLongGapOnSharedPathLikeSubject(t *testing.T) {
	base := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	windows := []types.ActivityWindow{
		{StartTime: base, EndTime: at(base, 1), KeySubjects: []string{"/proj"}},
		{StartTime: at(base, 90), EndTime: at(base, 91), KeySubjects: []string{"/proj"}},
	}
	stalls := Stalls(windows, 60*time.Minute)
	require.Len(t, stalls, 1)
	assert.Contains(t, stalls[0].Reason, "/proj")
	assert.Contains(t, stalls[0].Reason, "paused for")
}

func TestStalls_IgnoresNonPathLikeSubjects(t *testing.T) {
	base := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	windows := []types.ActivityWindow{
		{StartTime: base, EndTime: at(base, 1), KeySubjects: []string{"example.com"}},
		{StartTime: at(base, 90), EndTime: at(base, 91), KeySubjects: []string{"example.com"}},
	}
	assert.Empty(t, Stalls(windows, 60*time.Minute))
}

func TestActivity_SummarizesWindows(t *testing.T) {
	base := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	windows := []types.ActivityWindow{
		{StartTime: base, EndTime: at(base, 1), TaskLabel: "coding", Events: []types.Event{{}, {}}},
		{StartTime: at(base, 10), EndTime: at(base, 11), TaskLabel: "coding", Events: []types.Event{{}}},
		{StartTime: at(base, 20), EndTime: at(base, 21), TaskLabel: "research", Events: []types.Event{{}}},
	}

	summary := Activity(windows)
	assert.Equal(t, 3, summary.TotalWindows)
	assert.Equal(t, 4, summary.TotalEvents)
	assert.Equal(t, "coding", summary.DominantTask)
	assert.InDelta(t, 21, summary.TimeSpanMinutes, 0.001)
}

func TestActivity_EmptyWindows(t *testing.T) {
	summary := Activity(nil)
	assert.Equal(t, 0, summary.TotalWindows)
}
