package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prodfloor/scheduler/internal/calendar"
)

// maxConflictRetreatAttempts and conflictRetreatStep bound the final
// conflict-aware backward retry in the same-deadline escalation path: the
// pivot retreats by four hours per attempt, up to thirty attempts, before
// the job is given up on.
const (
	maxConflictRetreatAttempts = 30
	conflictRetreatStep        = 4 * time.Hour
)

// distantPast and distantFuture bound an "all rows for this procedure"
// conflict query while staying within a four-digit year, so the SQLite
// backend's lexicographic TEXT comparison agrees with chronological order.
var (
	distantPast   = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	distantFuture = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
)

// BatchScheduler orchestrates regenerate(): the sole public entry point
// that clears the Schedule table, groups Jobs by deadline, and dispatches
// each group to single-job or same-deadline placement.
type BatchScheduler struct {
	cal       *calendar.Calendar
	finder    *SlotFinder
	planner   *JobPlanner
	jobs      JobStore
	procs     ProcedureStore
	schedules ScheduleStore
}

// NewBatchScheduler wires a BatchScheduler from its collaborators.
func NewBatchScheduler(cal *calendar.Calendar, jobs JobStore, procs ProcedureStore, schedules ScheduleStore) *BatchScheduler {
	finder := NewSlotFinder(cal)
	return &BatchScheduler{
		cal:       cal,
		finder:    finder,
		planner:   NewJobPlanner(finder),
		jobs:      jobs,
		procs:     procs,
		schedules: schedules,
	}
}

// inFlightBatch accumulates the Schedule rows placed so far during the
// current regeneration, so later jobs in the batch see earlier jobs'
// placements as conflicts even though nothing has committed yet.
type inFlightBatch struct {
	byProcedure map[int64][]Interval
}

func newInFlightBatch() *inFlightBatch {
	return &inFlightBatch{byProcedure: make(map[int64][]Interval)}
}

func (b *inFlightBatch) add(rows []Schedule) {
	for _, r := range rows {
		b.byProcedure[r.ProcedureID] = append(b.byProcedure[r.ProcedureID], Interval{
			ProcedureID: r.ProcedureID, Start: r.Start, End: r.End,
		})
	}
}

func (b *inFlightBatch) forProcedure(procedureID int64) []Interval {
	return b.byProcedure[procedureID]
}

// Regenerate clears and rebuilds the Schedule table from the current Job
// and Procedure snapshots. It is the sole public entry point of the
// scheduling engine.
func (b *BatchScheduler) Regenerate(ctx context.Context) (RegenerateSummary, error) {
	started := time.Now()
	summary := RegenerateSummary{}

	jobs, err := b.jobs.ListJobs(ctx)
	if err != nil {
		return summary, fmt.Errorf("batchscheduler: list jobs: %w", err)
	}
	procedures, err := b.procs.ListProcedures(ctx)
	if err != nil {
		return summary, fmt.Errorf("batchscheduler: list procedures: %w", err)
	}
	summary.JobsTotal = len(jobs)

	err = b.schedules.Transaction(ctx, func(tx ScheduleStore) error {
		if err := tx.Clear(ctx); err != nil {
			return err
		}
		if len(jobs) == 0 || len(procedures) == 0 {
			return nil
		}

		inFlight := newInFlightBatch()
		lookup := func(store ScheduleStore) ConflictLookup {
			return func(procedureID int64) []Interval {
				persisted, err := store.Conflicts(ctx, procedureID, distantPast, distantFuture)
				if err != nil {
					persisted = nil
				}
				out := inFlight.forProcedure(procedureID)
				for _, p := range persisted {
					out = append(out, Interval{ProcedureID: p.ProcedureID, Start: p.Start, End: p.End})
				}
				return out
			}
		}(tx)

		for _, group := range groupByDeadline(jobs) {
			targetCompletion := b.cal.TargetCompletion(group.deadlineDate)

			if len(group.jobs) == 1 {
				job := group.jobs[0]
				rows, ok := b.planner.PlanBackward(job, procedures, targetCompletion, lookup)
				if !ok {
					summary.UnschedulableJobIDs = append(summary.UnschedulableJobIDs, job.ID)
					continue
				}
				if rows[len(rows)-1].End.After(targetCompletion) {
					summary.DeadlineMissedJobIDs = append(summary.DeadlineMissedJobIDs, job.ID)
				}
				if err := b.persist(ctx, tx, rows); err != nil {
					return err
				}
				inFlight.add(rows)
				summary.JobsScheduled++
				continue
			}

			sameDeadline := append([]Job(nil), group.jobs...)
			sort.Slice(sameDeadline, func(i, j int) bool { return sameDeadline[i].ID < sameDeadline[j].ID })

			for _, job := range sameDeadline {
				rows, scheduled := b.placeWithEscalation(ctx, job, procedures, targetCompletion, lookup, inFlight)
				if !scheduled {
					summary.UnschedulableJobIDs = append(summary.UnschedulableJobIDs, job.ID)
					continue
				}
				if rows[len(rows)-1].End.After(targetCompletion) {
					summary.DeadlineMissedJobIDs = append(summary.DeadlineMissedJobIDs, job.ID)
				}
				if err := b.persist(ctx, tx, rows); err != nil {
					return err
				}
				inFlight.add(rows)
				summary.JobsScheduled++
			}
		}
		return nil
	})
	if err != nil {
		return summary, err
	}

	summary.Duration = time.Since(started)
	return summary, nil
}

// placeWithEscalation implements §4.4 step 5 of the same-deadline handling:
// a backward attempt, conflict detection, forward escalation from the
// latest conflict end, and a final conflict-aware backward retry that
// retreats the pivot in four-hour steps.
func (b *BatchScheduler) placeWithEscalation(ctx context.Context, job Job, procedures []Procedure, targetCompletion time.Time, lookup ConflictLookup, inFlight *inFlightBatch) ([]Schedule, bool) {
	rows, ok := b.planner.PlanBackward(job, procedures, targetCompletion, lookup)
	if !ok {
		return nil, false
	}

	conflicting := rowConflicts(rows, lookup)
	if len(conflicting) == 0 {
		return rows, true
	}

	pivot := latestConflictEndAcross(conflicting)
	forwardRows, ok := b.planner.PlanForward(job, procedures, pivot, lookup)
	if ok && !forwardRows[len(forwardRows)-1].End.After(targetCompletion) {
		return forwardRows, true
	}

	// Conflict-aware backward retry: retreat the pivot by four hours per
	// attempt, accepting the first placement with no remaining conflicts.
	retreatPivot := targetCompletion
	for attempt := 0; attempt < maxConflictRetreatAttempts; attempt++ {
		candidate, ok := b.planner.PlanBackward(job, procedures, retreatPivot, lookup)
		if ok && len(rowConflicts(candidate, lookup)) == 0 {
			return candidate, true
		}
		retreatPivot = retreatPivot.Add(-conflictRetreatStep)
	}

	// Nothing conflict-free was found. If forward escalation at least
	// produced a schedule, accept it (it may still miss targetCompletion,
	// §7 error kind 2). Otherwise the job is unschedulable: the original
	// backward placement is known-conflicting and must not be persisted
	// (§7 error kind 1 — omit the job, don't surface a conflicting row).
	if ok {
		return forwardRows, true
	}
	return nil, false
}

func (b *BatchScheduler) persist(ctx context.Context, tx ScheduleStore, rows []Schedule) error {
	for i, row := range rows {
		inserted, err := tx.Insert(ctx, row)
		if err != nil {
			return fmt.Errorf("batchscheduler: insert schedule: %w", err)
		}
		rows[i] = inserted
	}
	return nil
}

func rowConflicts(rows []Schedule, lookup ConflictLookup) []Interval {
	var hits []Interval
	for _, row := range rows {
		candidate := Interval{ProcedureID: row.ProcedureID, Start: row.Start, End: row.End}
		for _, other := range lookup(row.ProcedureID) {
			if candidate.Overlaps(other) {
				hits = append(hits, other)
			}
		}
	}
	return hits
}

func latestConflictEndAcross(conflicts []Interval) time.Time {
	latest := conflicts[0].End
	for _, c := range conflicts[1:] {
		if c.End.After(latest) {
			latest = c.End
		}
	}
	return latest
}

type deadlineGroup struct {
	deadlineDate time.Time
	jobs         []Job
}

// groupByDeadline partitions jobs by (deadlineDate, deadlineTime) and
// returns the groups in ascending deadline order, matching the order Jobs
// were read in (deadlineDate, deadlineTime, jobId ascending).
func groupByDeadline(jobs []Job) []deadlineGroup {
	var groups []deadlineGroup
	for _, job := range jobs {
		if n := len(groups); n > 0 {
			last := &groups[n-1]
			if last.deadlineDate.Equal(job.DeadlineDate) && last.jobs[0].DeadlineTime == job.DeadlineTime {
				last.jobs = append(last.jobs, job)
				continue
			}
		}
		groups = append(groups, deadlineGroup{deadlineDate: job.DeadlineDate, jobs: []Job{job}})
	}
	return groups
}
