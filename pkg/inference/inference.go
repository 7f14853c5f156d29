// Package inference turns a flat event stream into labeled activity
// windows: heuristic task classification, context-switch detection, and
// stalled-work detection. Every function here is pure and deterministic
// given its input slice, which is the one part of Chronicle correct to
// leave on the standard library — there is nothing ecosystem libraries
// solve better for closed-set scoring heuristics than plain Go.
package inference

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tbrennan/chronicle/pkg/types"
)

// eventWeights scores how strongly an event type anchors a key subject.
var eventWeights = map[types.EventType]float64{
	types.EventFileCreate:      0.8,
	types.EventFileModify:      0.7,
	types.EventFileDelete:      0.5,
	types.EventFileMove:        0.6,
	types.EventGitCommit:       1.0,
	types.EventGitBranchSwitch: 0.9,
	types.EventGitBranchCreate: 0.8,
	types.EventProcessStart:    0.6,
	types.EventProcessActive:   0.4,
	types.EventShellCommand:    0.7,
	types.EventBrowserVisit:    0.5,
}

const defaultEventWeight = 0.5

// taskPattern describes one candidate task label: a required set of
// event types that must all be present, an optional set that boosts
// confidence, process-name hints that boost confidence further, and
// optional minimum-count thresholds that penalize a weak match.
type taskPattern struct {
	label           string
	requiredTypes   map[types.EventType]bool
	optionalTypes   map[types.EventType]bool
	processHints    map[string]bool
	minBrowserVisit int
	minCommands     int
}

func set(types_ ...types.EventType) map[types.EventType]bool {
	m := make(map[types.EventType]bool, len(types_))
	for _, t := range types_ {
		m[t] = true
	}
	return m
}

func hintSet(hints ...string) map[string]bool {
	m := make(map[string]bool, len(hints))
	for _, h := range hints {
		m[h] = true
	}
	return m
}

var taskPatterns = []taskPattern{
	{
		label:         "coding",
		requiredTypes: set(types.EventFileModify),
		optionalTypes: set(types.EventGitCommit, types.EventShellCommand),
		processHints:  hintSet("code", "vim", "nvim", "pycharm", "idea"),
	},
	{
		label:           "research",
		requiredTypes:   set(types.EventBrowserVisit),
		optionalTypes:   map[types.EventType]bool{},
		processHints:    hintSet("chrome", "firefox", "safari"),
		minBrowserVisit: 3,
	},
	{
		label:         "git_workflow",
		requiredTypes: set(types.EventGitCommit),
		optionalTypes: set(types.EventGitBranchSwitch),
		processHints:  map[string]bool{},
	},
	{
		label:         "terminal_work",
		requiredTypes: set(types.EventShellCommand),
		optionalTypes: map[types.EventType]bool{},
		processHints:  hintSet("terminal", "iterm", "alacritty"),
		minCommands:   3,
	},
	{
		label:         "file_organization",
		requiredTypes: set(types.EventFileMove, types.EventFileDelete),
		optionalTypes: map[types.EventType]bool{},
		processHints:  hintSet("finder", "explorer"),
	},
}

// defaultGapThreshold is the maximum gap between consecutive events that
// still belong to the same activity window.
const defaultGapThreshold = 5 * time.Minute

// Windows groups events into activity windows, splitting whenever the
// gap between one event and the next exceeds gapThreshold (0 uses the
// 5-minute default). Events need not be pre-sorted.
func Windows(events []types.Event, gapThreshold time.Duration) []types.ActivityWindow {
	if len(events) == 0 {
		return nil
	}
	if gapThreshold <= 0 {
		gapThreshold = defaultGapThreshold
	}

	sorted := make([]types.Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	var windows []types.ActivityWindow
	current := types.ActivityWindow{StartTime: sorted[0].Timestamp, EndTime: sorted[0].Timestamp}
	current.AddEvent(sorted[0])

	for _, e := range sorted[1:] {
		if e.Timestamp.Sub(current.EndTime) <= gapThreshold {
			current.AddEvent(e)
			continue
		}
		windows = append(windows, current)
		current = types.ActivityWindow{StartTime: e.Timestamp, EndTime: e.Timestamp}
		current.AddEvent(e)
	}
	windows = append(windows, current)
	return windows
}

func eventTypeSet(w types.ActivityWindow) map[types.EventType]bool {
	m := make(map[types.EventType]bool)
	for _, e := range w.Events {
		m[e.EventType] = true
	}
	return m
}

func processNameSet(w types.ActivityWindow) map[string]bool {
	m := make(map[string]bool)
	for _, e := range w.Events {
		if e.ProcessName != "" {
			m[strings.ToLower(e.ProcessName)] = true
		}
	}
	return m
}

func countEventType(w types.ActivityWindow, t types.EventType) int {
	n := 0
	for _, e := range w.Events {
		if e.EventType == t {
			n++
		}
	}
	return n
}

func subsetOf(required, present map[types.EventType]bool) bool {
	for t := range required {
		if !present[t] {
			return false
		}
	}
	return true
}

func intersectionCount(a map[types.EventType]bool, b map[types.EventType]bool) int {
	n := 0
	for t := range a {
		if b[t] {
			n++
		}
	}
	return n
}

func hintIntersectionCount(hints, processNames map[string]bool) int {
	n := 0
	for h := range hints {
		if processNames[h] {
			n++
		}
	}
	return n
}

// InferTask scores every task pattern whose required event types all
// appear in the window and returns the best-scoring label and its
// confidence. When no pattern's required types are present it returns
// "general_activity" at 0.3.
func InferTask(w types.ActivityWindow) (string, float64) {
	eventTypes := eventTypeSet(w)
	processNames := processNameSet(w)

	bestLabel, bestScore := "", 0.0

	for _, pattern := range taskPatterns {
		if !subsetOf(pattern.requiredTypes, eventTypes) {
			continue
		}

		score := 0.5
		score += float64(intersectionCount(pattern.optionalTypes, eventTypes)) * 0.1
		score += float64(hintIntersectionCount(pattern.processHints, processNames)) * 0.15

		if pattern.minBrowserVisit > 0 && countEventType(w, types.EventBrowserVisit) < pattern.minBrowserVisit {
			score *= 0.5
		}
		if pattern.minCommands > 0 && countEventType(w, types.EventShellCommand) < pattern.minCommands {
			score *= 0.5
		}

		if score > 1.0 {
			score = 1.0
		}
		if score > bestScore {
			bestLabel, bestScore = pattern.label, score
		}
	}

	if bestLabel == "" {
		return "general_activity", 0.3
	}
	return bestLabel, bestScore
}

// KeySubjects scores every subject touched by a window's events —
// weighted by event type, with an extra 1.5x boost for the repository of
// any event that has one set — and returns the top 5 by score.
func KeySubjects(w types.ActivityWindow) []string {
	scores := make(map[string]float64)

	for _, e := range w.Events {
		weight, ok := eventWeights[e.EventType]
		if !ok {
			weight = defaultEventWeight
		}
		scores[e.Subject] += weight
		if e.Repository != "" {
			scores[e.Repository] += weight * 1.5
		}
	}

	type scored struct {
		subject string
		score   float64
	}
	ranked := make([]scored, 0, len(scores))
	for subject, score := range scores {
		ranked = append(ranked, scored{subject, score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].subject < ranked[j].subject
	})

	n := 5
	if len(ranked) < n {
		n = len(ranked)
	}
	subjects := make([]string, n)
	for i := 0; i < n; i++ {
		subjects[i] = ranked[i].subject
	}
	return subjects
}

// Analyze fills in TaskLabel, TaskConfidence, and KeySubjects for every
// window in place and returns the same slice for chaining.
func Analyze(windows []types.ActivityWindow) []types.ActivityWindow {
	for i := range windows {
		label, confidence := InferTask(windows[i])
		windows[i].TaskLabel = label
		windows[i].TaskConfidence = confidence
		windows[i].KeySubjects = KeySubjects(windows[i])
	}
	return windows
}

// ContextSwitch records a detected change in task focus between two
// adjacent windows.
type ContextSwitch struct {
	From        types.ActivityWindow
	To          types.ActivityWindow
	Description string
}

// ContextSwitches detects task-label changes between adjacent, already
// analyzed windows where either the key subjects don't overlap at all or
// the gap between them exceeds 30 minutes.
func ContextSwitches(windows []types.ActivityWindow) []ContextSwitch {
	var switches []ContextSwitch

	for i := 1; i < len(windows); i++ {
		prev, curr := windows[i-1], windows[i]
		if prev.TaskLabel == curr.TaskLabel {
			continue
		}

		gapMinutes := curr.StartTime.Sub(prev.EndTime).Minutes()
		overlap := subjectOverlap(prev.KeySubjects, curr.KeySubjects)

		if overlap == 0 || gapMinutes > 30 {
			desc := "Switched from " + prev.TaskLabel + " to " + curr.TaskLabel
			if gapMinutes > 30 {
				desc += " (after " + strconv.Itoa(int(gapMinutes)) + " min break)"
			}
			switches = append(switches, ContextSwitch{From: prev, To: curr, Description: desc})
		}
	}
	return switches
}

func subjectOverlap(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	n := 0
	for _, s := range b {
		if set[s] {
			n++
		}
	}
	return n
}

// Stall records a gap in activity on a particular path-like key subject
// (a file, directory, or repository) longer than the stall threshold.
type Stall struct {
	Window types.ActivityWindow
	Reason string
}

const defaultStallThreshold = 60 * time.Minute

// Stalls groups analyzed windows by their path-like key subjects and
// reports any adjacent pair (by end time) separated by more than
// threshold (0 uses the 60-minute default).
func Stalls(windows []types.ActivityWindow, threshold time.Duration) []Stall {
	if threshold <= 0 {
		threshold = defaultStallThreshold
	}

	projectWindows := make(map[string][]types.ActivityWindow)
	for _, w := range windows {
		for _, subject := range w.KeySubjects {
			if types.IsPathLike(subject) {
				projectWindows[subject] = append(projectWindows[subject], w)
			}
		}
	}

	projects := make([]string, 0, len(projectWindows))
	for project := range projectWindows {
		projects = append(projects, project)
	}
	sort.Strings(projects)

	var stalls []Stall
	for _, project := range projects {
		ws := projectWindows[project]
		if len(ws) < 2 {
			continue
		}
		sorted := make([]types.ActivityWindow, len(ws))
		copy(sorted, ws)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].EndTime.Before(sorted[j].EndTime) })

		for i := 0; i < len(sorted)-1; i++ {
			gap := sorted[i+1].StartTime.Sub(sorted[i].EndTime)
			if gap > threshold {
				reason := "Work on " + project + " paused for " + strconv.Itoa(int(gap.Minutes())) + " minutes"
				stalls = append(stalls, Stall{Window: sorted[i], Reason: reason})
			}
		}
	}
	return stalls
}

// Summary aggregates statistics across a set of analyzed windows.
type Summary struct {
	TotalWindows     int
	TotalEvents      int
	TimeSpanMinutes  float64
	TaskDistribution map[string]int
	DominantTask     string
	ContextSwitches  int
}

// Activity computes a Summary over analyzed windows.
func Activity(windows []types.ActivityWindow) Summary {
	if len(windows) == 0 {
		return Summary{}
	}

	taskCounts := make(map[string]int)
	totalEvents := 0
	for _, w := range windows {
		taskCounts[w.TaskLabel]++
		totalEvents += len(w.Events)
	}

	timeSpan := windows[len(windows)-1].EndTime.Sub(windows[0].StartTime)

	dominant := ""
	best := -1
	for task, count := range taskCounts {
		if count > best || (count == best && task < dominant) {
			dominant, best = task, count
		}
	}

	return Summary{
		TotalWindows:     len(windows),
		TotalEvents:      totalEvents,
		TimeSpanMinutes:  timeSpan.Minutes(),
		TaskDistribution: taskCounts,
		DominantTask:     dominant,
		ContextSwitches:  len(ContextSwitches(windows)),
	}
}
