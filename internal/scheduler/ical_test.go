package scheduler

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeJobStore struct{ jobs []Job }

func (f fakeJobStore) ListJobs(context.Context) ([]Job, error) { return f.jobs, nil }

type fakeScheduleStore struct{ rows []Schedule }

func (f fakeScheduleStore) Clear(context.Context) error { return nil }
func (f fakeScheduleStore) Conflicts(context.Context, int64, time.Time, time.Time) ([]Schedule, error) {
	return nil, nil
}
func (f fakeScheduleStore) Insert(_ context.Context, row Schedule) (Schedule, error) { return row, nil }
func (f fakeScheduleStore) ListAll(context.Context) ([]Schedule, error)              { return f.rows, nil }
func (f fakeScheduleStore) ListForJob(context.Context, int64) ([]Schedule, error)    { return nil, nil }
func (f fakeScheduleStore) Transaction(ctx context.Context, fn func(tx ScheduleStore) error) error {
	return fn(f)
}

func TestRenderCalendarIncludesOnlyMatchingProcedure(t *testing.T) {
	jobs := fakeJobStore{jobs: []Job{{ID: 1, Name: "widget run"}}}
	start := time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC)
	schedules := fakeScheduleStore{rows: []Schedule{
		{ID: 10, JobID: 1, ProcedureID: 1, Start: start, End: start.Add(time.Hour)},
		{ID: 11, JobID: 1, ProcedureID: 2, Start: start, End: start.Add(time.Hour)},
	}}

	var buf bytes.Buffer
	err := RenderCalendar(context.Background(), &buf, schedules, jobs, 1, "paint")
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "BEGIN:VCALENDAR")
	require.Contains(t, out, "schedule-10@prodfloor")
	require.NotContains(t, out, "schedule-11@prodfloor")
	require.True(t, strings.Contains(out, "paint"))
}

func TestRenderCalendarFallsBackToJobIDWhenNameMissing(t *testing.T) {
	jobs := fakeJobStore{}
	start := time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC)
	schedules := fakeScheduleStore{rows: []Schedule{
		{ID: 1, JobID: 99, ProcedureID: 1, Start: start, End: start.Add(time.Hour)},
	}}

	var buf bytes.Buffer
	err := RenderCalendar(context.Background(), &buf, schedules, jobs, 1, "paint")
	require.NoError(t, err)
	require.Contains(t, buf.String(), "Job 99")
}
