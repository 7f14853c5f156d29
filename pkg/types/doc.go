/*
Package types defines the core data structures shared across Chronicle.

This package contains the unified event model, the derived activity window
used by the inference engine, and the typed node/edge shapes of the activity
graph. Every other package in this module depends on types; types depends
on nothing but the standard library.

# Core Types

Event Model:
  - Event: the single record every collector produces
  - EventType: closed enumeration of event kinds (file.*, git.*, process.*,
    shell.command, browser.visit)

Inference:
  - ActivityWindow: a derived, transient grouping of events close in time

Activity Graph:
  - GraphNode: a typed vertex (file, repo, url, domain, command, process)
  - GraphEdge: an undirected, weighted co-occurrence edge

# Usage

Building an event:

	ev := types.Event{
		ID:        uuid.New().String(),
		EventType: types.EventFileModify,
		Timestamp: time.Now(),
		Source:    "filesystem",
		Subject:   "/home/user/project/main.go",
	}

Deriving a graph node id for a subject:

	id := types.NodeID(string(types.NodeKindFile), ev.Subject)
*/
package types
