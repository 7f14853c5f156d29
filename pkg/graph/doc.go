/*
Package graph maintains Chronicle's activity co-occurrence graph: an
undirected, weighted graph over typed nodes (file, repo, url, domain,
command, process) where an edge means two entities appeared in the same
activity window.

The in-memory Graph is a plain adjacency map guarded by a RWMutex — reads
(CLI queries) and writes (the supervisor's sink calling AddEvent for every
event) can run concurrently. Save/Load persist the graph to a bbolt file so it
survives a restart without paying for a full history replay.
*/
package graph
