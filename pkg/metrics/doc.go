/*
Package metrics defines Chronicle's Prometheus instrumentation: event
counts by collector and type, collector error counts, and periodic
snapshots of the store and graph sizes. Everything registers against a
private Registry rather than the global default. Registry is exposed on
/metrics only when "chronicle start --metrics-addr" is given; otherwise
no network port is opened.
*/
package metrics
