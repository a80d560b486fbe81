package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// LogRegeneration writes one structured log line per regenerate() call,
// the mechanism behind the "SHOULD surface as a warning" language for
// unschedulable and deadline-missed jobs.
func LogRegeneration(logger *logrus.Logger, summary RegenerateSummary) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	entry := logger.WithFields(logrus.Fields{
		"jobs_total":     summary.JobsTotal,
		"jobs_scheduled": summary.JobsScheduled,
		"unschedulable":  summary.UnschedulableJobIDs,
		"deadline_missed": summary.DeadlineMissedJobIDs,
		"duration_ms":    summary.Duration.Milliseconds(),
	})
	if len(summary.UnschedulableJobIDs) > 0 || len(summary.DeadlineMissedJobIDs) > 0 {
		entry.Warn("regeneration completed with warnings")
		return
	}
	entry.Info("regeneration completed")
}

// InvariantSweep re-validates working-time identity (invariant 3) and
// single-team exclusivity (invariant 4) of the Schedule table against what
// is currently persisted, without mutating anything. Chain contiguity, the
// deadline margin and working-time containment are not checked. It exists to
// catch drift between regenerations (e.g. a direct database edit); it is
// not a substitute for regenerate().
type InvariantSweep struct {
	schedules ScheduleStore
	procs     ProcedureStore
	logger    *logrus.Logger
}

// NewInvariantSweep builds a sweep over the given stores. durationMinutes
// (passed to Run) is the caller's calendar working-duration function; it
// is not stored in the struct.
func NewInvariantSweep(schedules ScheduleStore, procs ProcedureStore, logger *logrus.Logger) *InvariantSweep {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &InvariantSweep{schedules: schedules, procs: procs, logger: logger}
}

// Run re-checks single-team exclusivity (invariant 4) and working-time
// identity (invariant 3) across every persisted Schedule row, logging any
// violation it finds.
func (s *InvariantSweep) Run(ctx context.Context, durationMinutes func(Schedule) int) error {
	rows, err := s.schedules.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("invariantsweep: list schedules: %w", err)
	}
	procedures, err := s.procs.ListProcedures(ctx)
	if err != nil {
		return fmt.Errorf("invariantsweep: list procedures: %w", err)
	}
	plannedMinutes := make(map[int64]int, len(procedures))
	for _, p := range procedures {
		plannedMinutes[p.ID] = p.DurationMinutes()
	}

	byProcedure := make(map[int64][]Schedule)
	for _, row := range rows {
		byProcedure[row.ProcedureID] = append(byProcedure[row.ProcedureID], row)
	}

	violations := 0
	for procedureID, group := range byProcedure {
		for i := range group {
			for j := range group {
				if i == j {
					continue
				}
				a := Interval{ProcedureID: procedureID, Start: group[i].Start, End: group[i].End}
				b := Interval{ProcedureID: procedureID, Start: group[j].Start, End: group[j].End}
				if a.Overlaps(b) {
					violations++
					s.logger.WithFields(logrus.Fields{
						"procedure_id": procedureID,
						"schedule_a":   group[i].ID,
						"schedule_b":   group[j].ID,
					}).Error("invariant sweep: single-team exclusivity violated")
				}
			}
		}
	}
	for _, row := range rows {
		want, ok := plannedMinutes[row.ProcedureID]
		if !ok {
			continue
		}
		if got := durationMinutes(row); got != want {
			violations++
			s.logger.WithFields(logrus.Fields{
				"schedule_id":  row.ID,
				"procedure_id": row.ProcedureID,
				"want_minutes": want,
				"got_minutes":  got,
			}).Error("invariant sweep: working-time identity violated")
		}
	}

	if violations == 0 {
		s.logger.Info("invariant sweep: no violations")
	}
	return nil
}

// ScheduleSweepJob registers a cron-driven InvariantSweep. The default
// expression runs the sweep nightly at 02:00.
func ScheduleSweepJob(c *cron.Cron, expr string, sweep *InvariantSweep, durationMinutes func(Schedule) int) error {
	if expr == "" {
		expr = "0 2 * * *"
	}
	_, err := c.AddFunc(expr, func() {
		if err := sweep.Run(context.Background(), durationMinutes); err != nil {
			sweep.logger.WithError(err).Error("invariant sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("audit: schedule sweep job: %w", err)
	}
	return nil
}
