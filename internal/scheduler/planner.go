package scheduler

import (
	"sort"
	"time"
)

// ConflictLookup returns the current conflict set for a procedure: the
// union of persisted Schedule rows and the in-flight rows accumulated so
// far during the current regeneration batch.
type ConflictLookup func(procedureID int64) []Interval

// JobPlanner turns one job plus the ordered procedure list into a
// chronological schedule, using SlotFinder and enforcing zero-gap chaining
// between consecutive procedures. Neither entry point checks single-team
// exclusivity; that is BatchScheduler's responsibility.
type JobPlanner struct {
	finder *SlotFinder
}

// NewJobPlanner builds a JobPlanner bound to the given SlotFinder.
func NewJobPlanner(finder *SlotFinder) *JobPlanner {
	return &JobPlanner{finder: finder}
}

func sortedBySequenceDesc(procedures []Procedure) []Procedure {
	sorted := append([]Procedure(nil), procedures...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Sequence > sorted[j].Sequence })
	return sorted
}

func sortedBySequenceAsc(procedures []Procedure) []Procedure {
	sorted := append([]Procedure(nil), procedures...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })
	return sorted
}

// PlanBackward walks procedures from the last sequence to the first,
// anchoring the last procedure's end at targetEnd and chaining each
// earlier procedure's end to the previous procedure's start. It returns
// rows in chronological order, or ok=false if any procedure cannot be
// placed.
func (p *JobPlanner) PlanBackward(job Job, procedures []Procedure, targetEnd time.Time, conflicts ConflictLookup) ([]Schedule, bool) {
	descending := sortedBySequenceDesc(procedures)
	rows := make([]Schedule, 0, len(descending))
	currentEnd := targetEnd

	for _, proc := range descending {
		start, ok := p.finder.FindStartTimeForDuration(proc.ID, proc.DurationMinutes(), currentEnd, conflicts(proc.ID))
		if !ok {
			return nil, false
		}
		rows = append(rows, Schedule{
			JobID:           job.ID,
			ProcedureID:     proc.ID,
			Start:           start,
			End:             currentEnd,
			PlannedTime:     proc.PlannedTimeHours,
			PlannedManpower: proc.PlannedManpower,
		})
		currentEnd = start
	}

	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, true
}

// PlanForward walks procedures from the first sequence to the last,
// anchoring the first procedure's start at earliestStart and chaining
// forward. Each procedure uses the single-block or multi-day forward
// primitive depending on whether its planned time exceeds the longest
// working block (285 minutes).
func (p *JobPlanner) PlanForward(job Job, procedures []Procedure, earliestStart time.Time, conflicts ConflictLookup) ([]Schedule, bool) {
	ascending := sortedBySequenceAsc(procedures)
	rows := make([]Schedule, 0, len(ascending))
	currentStart := earliestStart

	for _, proc := range ascending {
		duration := proc.DurationMinutes()
		var start, end time.Time
		var ok bool
		if duration > singleBlockThresholdMinutes {
			start, end, ok = p.finder.FindForwardMultiday(duration, currentStart)
		} else {
			start, end, ok = p.finder.FindForward(proc.ID, duration, currentStart, conflicts(proc.ID))
		}
		if !ok {
			return nil, false
		}
		rows = append(rows, Schedule{
			JobID:           job.ID,
			ProcedureID:     proc.ID,
			Start:           start,
			End:             end,
			PlannedTime:     proc.PlannedTimeHours,
			PlannedManpower: proc.PlannedManpower,
		})
		currentStart = end
	}
	return rows, true
}
