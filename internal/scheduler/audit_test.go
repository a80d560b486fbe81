package scheduler

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fakeProcedureStore struct{ procedures []Procedure }

func (f fakeProcedureStore) ListProcedures(context.Context) ([]Procedure, error) {
	return f.procedures, nil
}

func testLogger(buf *bytes.Buffer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	return logger
}

func TestInvariantSweepFindsOverlap(t *testing.T) {
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	schedules := fakeScheduleStore{rows: []Schedule{
		{ID: 1, ProcedureID: 1, Start: start, End: start.Add(time.Hour)},
		{ID: 2, ProcedureID: 1, Start: start.Add(30 * time.Minute), End: start.Add(90 * time.Minute)},
	}}
	procedures := fakeProcedureStore{procedures: []Procedure{{ID: 1, PlannedTimeHours: 1}}}

	var buf bytes.Buffer
	sweep := NewInvariantSweep(schedules, procedures, testLogger(&buf))
	durationMinutes := func(row Schedule) int { return int(row.End.Sub(row.Start).Minutes()) }

	require.NoError(t, sweep.Run(context.Background(), durationMinutes))
	require.Contains(t, buf.String(), "single-team exclusivity violated")
}

func TestInvariantSweepFindsWorkingTimeMismatch(t *testing.T) {
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	schedules := fakeScheduleStore{rows: []Schedule{
		{ID: 1, ProcedureID: 1, Start: start, End: start.Add(2 * time.Hour)},
	}}
	procedures := fakeProcedureStore{procedures: []Procedure{{ID: 1, PlannedTimeHours: 1}}}

	var buf bytes.Buffer
	sweep := NewInvariantSweep(schedules, procedures, testLogger(&buf))
	durationMinutes := func(row Schedule) int { return int(row.End.Sub(row.Start).Minutes()) }

	require.NoError(t, sweep.Run(context.Background(), durationMinutes))
	require.Contains(t, buf.String(), "working-time identity violated")
}

func TestInvariantSweepCleanScheduleLogsNoViolations(t *testing.T) {
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	schedules := fakeScheduleStore{rows: []Schedule{
		{ID: 1, ProcedureID: 1, Start: start, End: start.Add(time.Hour)},
	}}
	procedures := fakeProcedureStore{procedures: []Procedure{{ID: 1, PlannedTimeHours: 1}}}

	var buf bytes.Buffer
	sweep := NewInvariantSweep(schedules, procedures, testLogger(&buf))
	durationMinutes := func(row Schedule) int { return int(row.End.Sub(row.Start).Minutes()) }

	require.NoError(t, sweep.Run(context.Background(), durationMinutes))
	require.Contains(t, buf.String(), "no violations")
}

func TestLogRegenerationWarnsOnUnschedulable(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := testLogger(buf)
	LogRegeneration(logger, RegenerateSummary{JobsTotal: 2, JobsScheduled: 1, UnschedulableJobIDs: []int64{7}})
	require.Contains(t, buf.String(), "warning")
}
