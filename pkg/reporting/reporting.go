// Package reporting renders Markdown narratives over stored events,
// activity windows, and the activity graph. Generation is entirely
// rule-based and deterministic: the same query against the same store
// and graph state always produces the same report, which is what makes
// these reports diffable and testable.
package reporting

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tbrennan/chronicle/pkg/graph"
	"github.com/tbrennan/chronicle/pkg/inference"
	"github.com/tbrennan/chronicle/pkg/store"
	"github.com/tbrennan/chronicle/pkg/types"
)

// taskDescriptions maps an inferred task label to a human-readable
// description used in report prose.
var taskDescriptions = map[string]string{
	"coding":            "writing and editing code",
	"research":          "researching and browsing the web",
	"git_workflow":      "managing version control",
	"terminal_work":     "working in the terminal",
	"file_organization": "organizing files",
	"general_activity":  "various activities",
}

const timeFormat = "2006-01-02 15:04"

func taskDescription(label string) string {
	if desc, ok := taskDescriptions[label]; ok {
		return desc
	}
	return label
}

// Reporter generates Markdown narratives from a store and graph.
type Reporter struct {
	store store.Interface
	graph *graph.Graph
}

// New builds a Reporter over an already-open store and graph.
func New(s store.Interface, g *graph.Graph) *Reporter {
	return &Reporter{store: s, graph: g}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	default:
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % 60
		return fmt.Sprintf("%d hours, %d minutes", hours, minutes)
	}
}

func formatTimeRange(start, end time.Time) string {
	if start.Format("2006-01-02") == end.Format("2006-01-02") {
		return fmt.Sprintf("%s - %s", start.Format(timeFormat), end.Format("15:04"))
	}
	return fmt.Sprintf("%s - %s", start.Format(timeFormat), end.Format(timeFormat))
}

func baseName(subject string) string {
	name := filepath.Base(subject)
	if name == "." || name == "/" {
		return subject
	}
	return name
}

func joinBaseNames(subjects []string, limit int) string {
	if len(subjects) == 0 {
		return ""
	}
	if limit > len(subjects) {
		limit = len(subjects)
	}
	names := make([]string, limit)
	for i := 0; i < limit; i++ {
		names[i] = baseName(subjects[i])
	}
	return strings.Join(names, ", ")
}

func windowSummary(w types.ActivityWindow) string {
	var b strings.Builder

	timeRange := formatTimeRange(w.StartTime, w.EndTime)
	duration := formatDuration(w.EndTime.Sub(w.StartTime))

	typeCounts := make(map[string]int)
	var order []string
	for _, e := range w.Events {
		family := strings.SplitN(string(e.EventType), ".", 2)[0]
		if _, seen := typeCounts[family]; !seen {
			order = append(order, family)
		}
		typeCounts[family]++
	}

	fmt.Fprintf(&b, "**%s** (%s)\n", timeRange, duration)
	fmt.Fprintf(&b, "- Primary activity: %s\n", taskDescription(w.TaskLabel))
	fmt.Fprintf(&b, "- Confidence: %.0f%%\n", w.TaskConfidence*100)

	parts := make([]string, 0, len(order))
	for _, family := range order {
		parts = append(parts, fmt.Sprintf("%d %s", typeCounts[family], family))
	}
	fmt.Fprintf(&b, "- Events: %d (%s)\n", len(w.Events), strings.Join(parts, ", "))

	if len(w.KeySubjects) > 0 {
		fmt.Fprintf(&b, "- Key subjects: %s\n", joinBaseNames(w.KeySubjects, 3))
	}

	return b.String()
}

// ExplainWindow generates a narrative explaining activity between start
// and end.
func (r *Reporter) ExplainWindow(start, end time.Time) (string, error) {
	events, err := r.store.Range(start, end, nil, nil, 0)
	if err != nil {
		return "", fmt.Errorf("query events: %w", err)
	}

	if len(events) == 0 {
		return fmt.Sprintf("# Activity Report\n\nNo activity recorded between %s and %s.\n",
			start.Format(timeFormat), end.Format(timeFormat)), nil
	}

	windows := inference.Analyze(inference.Windows(events, 0))
	summary := inference.Activity(windows)

	var b strings.Builder
	b.WriteString("# Activity Report\n\n")
	fmt.Fprintf(&b, "**Period:** %s\n\n", formatTimeRange(start, end))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- **Total events:** %d\n", summary.TotalEvents)
	fmt.Fprintf(&b, "- **Activity windows:** %d\n", summary.TotalWindows)
	if summary.DominantTask != "" {
		fmt.Fprintf(&b, "- **Primary focus:** %s\n", taskDescription(summary.DominantTask))
	}
	fmt.Fprintf(&b, "- **Context switches:** %d\n\n", summary.ContextSwitches)

	if len(summary.TaskDistribution) > 0 {
		b.WriteString("## Task Distribution\n\n")
		tasks := make([]string, 0, len(summary.TaskDistribution))
		for t := range summary.TaskDistribution {
			tasks = append(tasks, t)
		}
		sort.Slice(tasks, func(i, j int) bool {
			if summary.TaskDistribution[tasks[i]] != summary.TaskDistribution[tasks[j]] {
				return summary.TaskDistribution[tasks[i]] > summary.TaskDistribution[tasks[j]]
			}
			return tasks[i] < tasks[j]
		})
		for _, t := range tasks {
			fmt.Fprintf(&b, "- %s: %d windows\n", taskDescription(t), summary.TaskDistribution[t])
		}
		b.WriteString("\n")
	}

	b.WriteString("## Activity Timeline\n\n")
	for _, w := range windows {
		b.WriteString(windowSummary(w))
		b.WriteString("\n")
	}

	switches := inference.ContextSwitches(windows)
	if len(switches) > 0 {
		b.WriteString("## Context Switches\n\n")
		for _, sw := range switches {
			fmt.Fprintf(&b, "- %s\n", sw.Description)
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

// ExplainLast generates a narrative covering the last d of activity.
func (r *Reporter) ExplainLast(d time.Duration) (string, error) {
	end := time.Now()
	return r.ExplainWindow(end.Add(-d), end)
}

// TraceSubject generates a report tracing a single subject's history
// across the store and the graph's related-node neighborhood.
func (r *Reporter) TraceSubject(subject string) (string, error) {
	events, err := r.store.BySubject(subject, 200)
	if err != nil {
		return "", fmt.Errorf("query events for subject: %w", err)
	}

	if len(events) == 0 {
		return fmt.Sprintf("# Trace Report\n\nNo activity found for: %s\n", subject), nil
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.After(events[j].Timestamp) })
	firstSeen, lastSeen := events[len(events)-1].Timestamp, events[0].Timestamp

	var b strings.Builder
	fmt.Fprintf(&b, "# Trace Report: %s\n\n", baseName(subject))
	fmt.Fprintf(&b, "**Full path:** `%s`\n\n", subject)

	b.WriteString("## Overview\n\n")
	fmt.Fprintf(&b, "- **First seen:** %s\n", firstSeen.Format(timeFormat))
	fmt.Fprintf(&b, "- **Last seen:** %s\n", lastSeen.Format(timeFormat))
	fmt.Fprintf(&b, "- **Total events:** %d\n\n", len(events))

	typeCounts := make(map[types.EventType]int)
	for _, e := range events {
		typeCounts[e.EventType]++
	}
	types_ := make([]types.EventType, 0, len(typeCounts))
	for t := range typeCounts {
		types_ = append(types_, t)
	}
	sort.Slice(types_, func(i, j int) bool {
		if typeCounts[types_[i]] != typeCounts[types_[j]] {
			return typeCounts[types_[i]] > typeCounts[types_[j]]
		}
		return types_[i] < types_[j]
	})

	b.WriteString("## Event Types\n\n")
	for _, t := range types_ {
		fmt.Fprintf(&b, "- %s: %d\n", t, typeCounts[t])
	}
	b.WriteString("\n")

	if matches := r.graph.Find(subject); len(matches) > 0 {
		related := r.graph.Neighbors(matches[0], 2, 0)
		if len(related) > 0 {
			b.WriteString("## Related Items\n\n")
			n := 10
			if n > len(related) {
				n = len(related)
			}
			for _, nw := range related[:n] {
				display := nw.NodeID
				if idx := strings.Index(display, ":"); idx >= 0 {
					display = display[idx+1:]
				}
				if len(display) > 60 {
					display = display[:60] + "..."
				}
				fmt.Fprintf(&b, "- `%s` (weight: %d)\n", display, nw.Weight)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Recent Activity\n\n")
	n := 20
	if n > len(events) {
		n = len(events)
	}
	for _, e := range events[:n] {
		desc := e.Description
		if desc == "" {
			desc = truncateText(e.Subject, 50)
		}
		fmt.Fprintf(&b, "- **%s** - %s: %s\n", e.Timestamp.Format(timeFormat), e.EventType, desc)
	}

	return b.String(), nil
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// ExplainStalls generates a report on stalled work detected in the last
// 24 hours.
func (r *Reporter) ExplainStalls() (string, error) {
	events, err := r.store.Recent(24*time.Hour, 0)
	if err != nil {
		return "", fmt.Errorf("query recent events: %w", err)
	}

	if len(events) == 0 {
		return "# Stall Report\n\nNo activity in the last 24 hours.\n", nil
	}

	windows := inference.Analyze(inference.Windows(events, 0))
	stalls := inference.Stalls(windows, 0)

	var b strings.Builder
	b.WriteString("# Stall Report\n\n")

	if len(stalls) == 0 {
		b.WriteString("No stalled tasks detected in recent activity.\n")
		return b.String(), nil
	}

	fmt.Fprintf(&b, "Found %d potential stalls:\n\n", len(stalls))
	for _, s := range stalls {
		b.WriteString("## Stall Detected\n\n")
		fmt.Fprintf(&b, "- **Time:** %s\n", s.Window.EndTime.Format(timeFormat))
		fmt.Fprintf(&b, "- **Task:** %s\n", taskDescription(s.Window.TaskLabel))
		fmt.Fprintf(&b, "- **Reason:** %s\n", s.Reason)
		if len(s.Window.KeySubjects) > 0 {
			fmt.Fprintf(&b, "- **Subjects:** %s\n", joinBaseNames(s.Window.KeySubjects, 3))
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

// ExplainContextSwitches generates a report on context-switching
// patterns detected in the last 8 hours.
func (r *Reporter) ExplainContextSwitches() (string, error) {
	events, err := r.store.Recent(8*time.Hour, 0)
	if err != nil {
		return "", fmt.Errorf("query recent events: %w", err)
	}

	if len(events) == 0 {
		return "# Context Switch Report\n\nNo activity in the last 8 hours.\n", nil
	}

	windows := inference.Analyze(inference.Windows(events, 0))
	switches := inference.ContextSwitches(windows)

	var b strings.Builder
	b.WriteString("# Context Switch Report\n\n")

	if len(switches) == 0 {
		b.WriteString("No significant context switches detected.\n")
		b.WriteString("Your focus appears to have been consistent.\n")
		return b.String(), nil
	}

	fmt.Fprintf(&b, "Detected %d context switches:\n\n", len(switches))
	for _, sw := range switches {
		gapMinutes := int(sw.To.StartTime.Sub(sw.From.EndTime).Minutes())

		fmt.Fprintf(&b, "### Switch at %s\n\n", sw.To.StartTime.Format(timeFormat))
		fmt.Fprintf(&b, "- %s\n", sw.Description)
		fmt.Fprintf(&b, "- Gap duration: %d minutes\n", gapMinutes)
		fmt.Fprintf(&b, "- From subjects: %s\n", joinBaseNames(sw.From.KeySubjects, 2))
		fmt.Fprintf(&b, "- To subjects: %s\n", joinBaseNames(sw.To.KeySubjects, 2))
		b.WriteString("\n")
	}

	b.WriteString("## Analysis\n\n")
	if len(switches) > 5 {
		b.WriteString("High context switching detected. Consider:\n")
		b.WriteString("- Grouping similar tasks together\n")
		b.WriteString("- Using time blocking techniques\n")
		b.WriteString("- Reducing interruptions\n")
	} else {
		b.WriteString("Context switching is within normal range.\n")
	}

	return b.String(), nil
}
