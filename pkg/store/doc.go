/*
Package store provides append-only, time-indexed event storage for
Chronicle, backed by a pure-Go SQLite driver (modernc.org/sqlite) in WAL
mode.

Events are never updated or deleted; every write is an insert keyed by
the event's own ID, so inserting the same Event value twice stores it
once. Range, BySubject,
ByRepository and Recent cover the query shapes the CLI and inference
engine need; Iterate pages through the full table for bulk consumers like
graph rebuilds without loading it into memory at once.
*/
package store
