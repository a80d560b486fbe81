package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prodfloor/scheduler/internal/calendar"
)

func testSlotFinder(t *testing.T) *SlotFinder {
	t.Helper()
	cal, err := calendar.New(calendar.Default(), "UTC")
	require.NoError(t, err)
	return NewSlotFinder(cal)
}

func TestFindBackwardFitsInsideOneBlock(t *testing.T) {
	f := testSlotFinder(t)
	// Monday 2024-03-04, last block ends 17:00. A 60-minute job ending at
	// 17:00 fits entirely inside 13:30-17:00.
	pivot := time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC)
	start, end, ok := f.FindBackward(1, 60, pivot, nil)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC), start)
	require.Equal(t, pivot, end)
}

func TestFindBackwardSkipsConflict(t *testing.T) {
	f := testSlotFinder(t)
	pivot := time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC)
	// The last 60 minutes of the block are already taken, so the finder
	// must land just before that conflict.
	conflicts := []Interval{
		{ProcedureID: 1, Start: time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC), End: pivot},
	}
	start, end, ok := f.FindBackward(1, 60, pivot, conflicts)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC), end)
}

func TestFindBackwardCrossesToPreviousWorkingDay(t *testing.T) {
	f := testSlotFinder(t)
	// Monday morning pivot too early for a 60-minute block that day; the
	// finder must fall back to the prior Saturday's last block.
	pivot := time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC)
	start, end, ok := f.FindBackward(1, 60, pivot, nil)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 2, 14, 30, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2024, 3, 2, 15, 30, 0, 0, time.UTC), end)
}

func TestFindForwardFitsInsideOneBlock(t *testing.T) {
	f := testSlotFinder(t)
	pivot := time.Date(2024, 3, 4, 8, 15, 0, 0, time.UTC)
	start, end, ok := f.FindForward(1, 60, pivot, nil)
	require.True(t, ok)
	require.Equal(t, pivot, start)
	require.Equal(t, time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC), end)
}

func TestFindForwardSkipsConflictAndGap(t *testing.T) {
	f := testSlotFinder(t)
	pivot := time.Date(2024, 3, 4, 8, 15, 0, 0, time.UTC)
	conflicts := []Interval{
		{ProcedureID: 1, Start: pivot, End: time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC)},
	}
	start, end, ok := f.FindForward(1, 60, pivot, conflicts)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2024, 3, 4, 10, 15, 0, 0, time.UTC), end)
}

func TestFindBackwardMultidayConsumesAcrossDays(t *testing.T) {
	f := testSlotFinder(t)
	// 10 hours (600m) exceeds Monday's full-day capacity (495m), so the
	// composite must reach back into Saturday.
	pivot := time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC)
	start, end, ok := f.FindBackwardMultiday(1, 600, pivot, nil)
	require.True(t, ok)
	require.Equal(t, pivot, end)
	require.True(t, start.Before(time.Date(2024, 3, 4, 8, 15, 0, 0, time.UTC)))
}

func TestFindForwardMultidayConsumesAcrossDays(t *testing.T) {
	f := testSlotFinder(t)
	// 10 hours (600m) exceeds Monday's full-day capacity (495m), so the
	// composite must spill into Tuesday.
	pivot := time.Date(2024, 3, 4, 8, 15, 0, 0, time.UTC)
	start, end, ok := f.FindForwardMultiday(600, pivot)
	require.True(t, ok)
	require.Equal(t, pivot, start)
	require.True(t, end.After(time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC)))
}

func TestFindStartTimeForDurationMatchesBackwardSingleBlock(t *testing.T) {
	f := testSlotFinder(t)
	targetEnd := time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC)
	start, ok := f.FindStartTimeForDuration(1, 60, targetEnd, nil)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC), start)
}

func TestFindStartTimeForDurationMultiday(t *testing.T) {
	f := testSlotFinder(t)
	targetEnd := time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC)
	start, ok := f.FindStartTimeForDuration(1, 600, targetEnd, nil)
	require.True(t, ok)
	require.True(t, start.Before(time.Date(2024, 3, 4, 8, 15, 0, 0, time.UTC)))
}

func TestFindStartTimeForDurationZeroDurationReturnsPivot(t *testing.T) {
	f := testSlotFinder(t)
	// A zero-hour procedure must produce the literal [t,t] row at the
	// chained pivot, even when the pivot sits exactly on a block boundary
	// (13:30, the start of Monday's afternoon block).
	pivot := time.Date(2024, 3, 4, 13, 30, 0, 0, time.UTC)
	start, ok := f.FindStartTimeForDuration(1, 0, pivot, nil)
	require.True(t, ok)
	require.Equal(t, pivot, start)
}
