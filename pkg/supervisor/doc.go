/*
Package supervisor wires the collector set to the store, graph, live
event broker, and metrics registry, and runs the periodic graph-save and
status-log loops that the standalone daemon depends on.
*/
package supervisor
