package scheduler

import "time"

// Job is a unit of work that must pass through every Procedure in sequence
// order before its Deadline. ID is assigned monotonically by the store and
// doubles as the priority key: a lower ID outranks a higher one when two
// jobs share a deadline.
type Job struct {
	ID           int64
	Name         string
	Description  string
	DeadlineDate time.Time // date component only, time-of-day ignored
	DeadlineTime string    // "HH:MM", carried for display; not used in arithmetic
}

// Procedure is one station in the shop's fixed pipeline. Sequence need not
// be contiguous; procedures are always walked in ascending Sequence order.
type Procedure struct {
	ID               int64
	Sequence         int
	Name             string
	Description      string
	PlannedTimeHours int
	PlannedManpower  int
	IsProd           bool
	IsStore          bool
}

// DurationMinutes returns the procedure's planned time expressed in
// minutes, the unit SlotFinder and JobPlanner operate in.
func (p Procedure) DurationMinutes() int {
	return p.PlannedTimeHours * 60
}

// Schedule is one placed (job, procedure) interval. The Schedule collection
// is derived state: truncated and rebuilt in full on every regeneration.
type Schedule struct {
	ID              int64
	JobID           int64
	ProcedureID     int64
	Start           time.Time
	End             time.Time
	PlannedTime     int // hours, copied from the procedure at placement time
	PlannedManpower int // copied from the procedure at placement time
}

// Interval is a bare (procedureId, start, end) conflict-set entry; it is
// the common shape shared by persisted Schedule rows and in-flight rows
// accumulated during the current regeneration batch.
type Interval struct {
	ProcedureID int64
	Start       time.Time
	End         time.Time
}

// Overlaps reports whether two intervals on the same procedure conflict.
// Touching at a single instant is not a conflict: the test is strict.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && iv.End.After(other.Start)
}

// RegenerateSummary describes the outcome of one regenerate() call, used by
// the audit log and the schedule-change notifier.
type RegenerateSummary struct {
	JobsTotal            int
	JobsScheduled        int
	UnschedulableJobIDs  []int64
	DeadlineMissedJobIDs []int64
	Duration             time.Duration
}
