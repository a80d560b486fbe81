package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prodfloor/scheduler/internal/calendar"
)

func testPlanner(t *testing.T) *JobPlanner {
	t.Helper()
	cal, err := calendar.New(calendar.Default(), "UTC")
	require.NoError(t, err)
	return NewJobPlanner(NewSlotFinder(cal))
}

func noConflicts(int64) []Interval { return nil }

func TestPlanBackwardChainsWithoutGaps(t *testing.T) {
	p := testPlanner(t)
	job := Job{ID: 1, Name: "widget"}
	procedures := []Procedure{
		{ID: 1, Sequence: 1, PlannedTimeHours: 1},
		{ID: 2, Sequence: 2, PlannedTimeHours: 1},
	}
	targetEnd := time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC)

	rows, ok := p.PlanBackward(job, procedures, targetEnd, noConflicts)
	require.True(t, ok)
	require.Len(t, rows, 2)

	// Chronological order, sequence ascending.
	require.Equal(t, int64(1), rows[0].ProcedureID)
	require.Equal(t, int64(2), rows[1].ProcedureID)
	// Zero-gap contiguity: procedure 2 starts exactly where procedure 1 ends.
	require.Equal(t, rows[0].End, rows[1].Start)
	require.Equal(t, targetEnd, rows[1].End)
}

func TestPlanForwardChainsWithoutGaps(t *testing.T) {
	p := testPlanner(t)
	job := Job{ID: 1, Name: "widget"}
	procedures := []Procedure{
		{ID: 1, Sequence: 1, PlannedTimeHours: 1},
		{ID: 2, Sequence: 2, PlannedTimeHours: 1},
	}
	earliestStart := time.Date(2024, 3, 4, 8, 15, 0, 0, time.UTC)

	rows, ok := p.PlanForward(job, procedures, earliestStart, noConflicts)
	require.True(t, ok)
	require.Len(t, rows, 2)
	require.Equal(t, earliestStart, rows[0].Start)
	require.Equal(t, rows[0].End, rows[1].Start)
}

func TestPlanForwardUsesMultidayPrimitiveAboveThreshold(t *testing.T) {
	p := testPlanner(t)
	job := Job{ID: 1, Name: "widget"}
	// 5 hours (300m) exceeds the 285m single-block threshold, so this
	// procedure must be placed by the multi-day primitive, which ignores
	// the conflict set entirely.
	procedures := []Procedure{{ID: 1, Sequence: 1, PlannedTimeHours: 5}}
	earliestStart := time.Date(2024, 3, 4, 8, 15, 0, 0, time.UTC)

	rows, ok := p.PlanForward(job, procedures, earliestStart, noConflicts)
	require.True(t, ok)
	require.Len(t, rows, 1)
	require.Equal(t, earliestStart, rows[0].Start)
}

func TestPlanBackwardFailsWhenNoCapacity(t *testing.T) {
	p := testPlanner(t)
	job := Job{ID: 1}
	procedures := []Procedure{{ID: 1, Sequence: 1, PlannedTimeHours: 1}}
	targetEnd := time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC)

	// A conflict covering the entire search horizon leaves nothing to place.
	alwaysBusy := func(int64) []Interval {
		return []Interval{{
			ProcedureID: 1,
			Start:       time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC),
			End:         time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC),
		}}
	}

	_, ok := p.PlanBackward(job, procedures, targetEnd, alwaysBusy)
	require.False(t, ok)
}
