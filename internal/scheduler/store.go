package scheduler

import (
	"context"
	"time"
)

// JobStore provides read-only access to the Job collection during
// regeneration. Jobs are owned by the external admin surface.
type JobStore interface {
	ListJobs(ctx context.Context) ([]Job, error)
}

// ProcedureStore provides read-only access to the Procedure collection
// during regeneration. Procedures are owned by the external admin surface.
type ProcedureStore interface {
	ListProcedures(ctx context.Context) ([]Procedure, error)
}

// ScheduleStore persists the derived Schedule table. It is expected to be
// transactional around a single regenerate() call so that a failure leaves
// the previous schedule intact.
type ScheduleStore interface {
	// Clear truncates every Schedule row. It is always the first operation
	// of a regeneration.
	Clear(ctx context.Context) error

	// Conflicts returns persisted rows on procedureID whose interval
	// overlaps [start,end) using the strict conflict predicate.
	Conflicts(ctx context.Context, procedureID int64, start, end time.Time) ([]Schedule, error)

	// Insert appends a row; its ID is assigned automatically.
	Insert(ctx context.Context, row Schedule) (Schedule, error)

	// ListAll returns every persisted Schedule row, ordered by ID.
	ListAll(ctx context.Context) ([]Schedule, error)

	// ListForJob returns every persisted row for one job, in no particular
	// order (callers sort by procedure sequence as needed).
	ListForJob(ctx context.Context, jobID int64) ([]Schedule, error)

	// Transaction runs fn inside a single transaction against the store;
	// any error returned by fn rolls back every write fn performed.
	Transaction(ctx context.Context, fn func(tx ScheduleStore) error) error
}
