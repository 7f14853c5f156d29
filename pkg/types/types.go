package types

import (
	"fmt"
	"strings"
	"time"
)

// EventType is a closed enumeration of the kinds of activity Chronicle
// records. New sources must extend this list rather than stuff unrelated
// meaning into an existing value.
type EventType string

const (
	EventFileCreate      EventType = "file.create"
	EventFileModify      EventType = "file.modify"
	EventFileDelete      EventType = "file.delete"
	EventFileMove        EventType = "file.move"
	EventGitCommit       EventType = "git.commit"
	EventGitBranchSwitch EventType = "git.branch_switch"
	EventGitBranchCreate EventType = "git.branch_create"
	EventGitMerge        EventType = "git.merge"
	EventGitPull         EventType = "git.pull"
	EventGitPush         EventType = "git.push"
	EventProcessStart    EventType = "process.start"
	EventProcessActive   EventType = "process.active"
	EventProcessEnd      EventType = "process.end"
	EventShellCommand    EventType = "shell.command"
	EventBrowserVisit    EventType = "browser.visit"
)

// Event is the universal record every collector emits. Subject carries the
// primary thing the event is about (a path, a command, a URL); SubjectSecondary
// carries a secondary subject for events that relate two things (a move's
// destination, a branch switch's prior branch).
type Event struct {
	ID               string
	EventType        EventType
	Timestamp        time.Time
	Source           string // collector name that produced this event
	Subject          string
	SubjectSecondary string
	Description      string
	Repository       string // git repository root, if the event occurred inside one
	ProcessName      string
	Metadata         map[string]string
	Confidence       float64 // 0 when not applicable; collectors that guess set this
}

// NodeID renders the graph node identity for this event's primary subject,
// truncated to the 200-byte cap shared by every node kind.
func NodeID(kind, value string) string {
	if len(value) > 200 {
		value = value[:200]
	}
	return fmt.Sprintf("%s:%s", kind, value)
}

// ActivityWindow is a derived, transient grouping of events that occurred
// close together in time. Windows are never persisted as such; they exist
// only for the duration of an inference query.
type ActivityWindow struct {
	StartTime      time.Time
	EndTime        time.Time
	Events         []Event
	TaskLabel      string
	TaskConfidence float64
	KeySubjects    []string
}

// AddEvent appends an event to the window and extends EndTime if needed.
// Events are expected to arrive in non-decreasing timestamp order; this
// matches how Windows() constructs them.
func (w *ActivityWindow) AddEvent(e Event) {
	w.Events = append(w.Events, e)
	if e.Timestamp.After(w.EndTime) {
		w.EndTime = e.Timestamp
	}
}

// IsPathLike reports whether a subject string looks like a filesystem path,
// the heuristic the inference engine uses to group windows by project.
func IsPathLike(subject string) bool {
	return strings.Contains(subject, "/") || strings.Contains(subject, "\\")
}

// GraphNodeKind enumerates the typed node kinds in the activity graph.
type GraphNodeKind string

const (
	NodeKindFile    GraphNodeKind = "file"
	NodeKindRepo    GraphNodeKind = "repo"
	NodeKindURL     GraphNodeKind = "url"
	NodeKindDomain  GraphNodeKind = "domain"
	NodeKindCommand GraphNodeKind = "command"
	NodeKindProcess GraphNodeKind = "process"
)

// GraphNode is a single vertex in the activity graph.
type GraphNode struct {
	ID         string
	Kind       GraphNodeKind
	Value      string
	FirstSeen  time.Time
	LastSeen   time.Time
	OccurCount int
}

// GraphEdge is an undirected, weighted co-occurrence edge between two
// nodes. A and B are stored in a canonical order (A < B lexicographically)
// so that a pair is never represented by two distinct edges.
type GraphEdge struct {
	A, B     string
	Weight   int
	LastSeen time.Time
}
