/*
Package collector implements Chronicle's five activity sources:
filesystem (fsnotify), git (shelling out to the git binary), process
(gopsutil sampling), terminal (shell history tailing), and browser
(Chrome/Firefox history databases).

Each collector implements the single-method Collector interface and is
given a Sink closure rather than a channel: the supervisor calls the
collector's Run method in its own goroutine and every event the
collector produces is delivered synchronously to that closure, which
owns the store/graph writes. This keeps each collector's events in
causal order relative to the other events it produces, at the cost of
collectors blocking briefly on the sink rather than only a local queue.
*/
package collector
