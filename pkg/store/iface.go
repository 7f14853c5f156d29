package store

import (
	"time"

	"github.com/tbrennan/chronicle/pkg/types"
)

// Interface is the event store's query surface, kept separate from the
// concrete Store so the supervisor and CLI can depend on a narrow
// interface and tests can substitute an in-memory fake.
type Interface interface {
	Insert(e types.Event) error
	InsertMany(events []types.Event) (int, error)
	Range(start, end time.Time, eventTypes []types.EventType, sources []string, limit int) ([]types.Event, error)
	BySubject(subject string, limit int) ([]types.Event, error)
	ByRepository(repository string, limit int) ([]types.Event, error)
	Recent(d time.Duration, limit int) ([]types.Event, error)
	Count(start, end time.Time) (int64, error)
	CountsByType() (map[types.EventType]int64, error)
	Iterate(batchSize int, visit func(types.Event) bool) error
	Compact() error
	Close() error
}
