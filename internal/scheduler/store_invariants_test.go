package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// storeFixture lets runScheduleStoreInvariants exercise the same assertions
// against any backend that implements JobStore/ProcedureStore/ScheduleStore,
// parametrized only by how each backend seeds its jobs/procedures tables.
type storeFixture struct {
	store interface {
		JobStore
		ProcedureStore
		ScheduleStore
	}
	seedJob       func(t *testing.T, name string, deadline time.Time) int64
	seedProcedure func(t *testing.T, sequence, hours int) int64
}

// runScheduleStoreInvariants asserts the invariants every ScheduleStore
// backend must uphold: ordering, conflict detection, clearing, and
// transactional rollback. SQLiteStore and PGStore both run it so that
// neither backend can drift from the other's semantics. The subtests share
// one store, so each seeds its procedures with sequence numbers no earlier
// subtest used (the SQLite schema keeps procedures.sequence unique).
func runScheduleStoreInvariants(t *testing.T, fx storeFixture) {
	t.Run("ListJobsOrdersByDeadline", func(t *testing.T) {
		later := fx.seedJob(t, "later", time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC))
		earlier := fx.seedJob(t, "earlier", time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC))

		jobs, err := fx.store.ListJobs(context.Background())
		require.NoError(t, err)
		require.Len(t, jobs, 2)
		require.Equal(t, earlier, jobs[0].ID)
		require.Equal(t, later, jobs[1].ID)
	})

	t.Run("ListProceduresOrdersBySequence", func(t *testing.T) {
		fx.seedProcedure(t, 2, 1)
		fx.seedProcedure(t, 1, 1)

		procedures, err := fx.store.ListProcedures(context.Background())
		require.NoError(t, err)
		require.Len(t, procedures, 2)
		require.Equal(t, 1, procedures[0].Sequence)
		require.Equal(t, 2, procedures[1].Sequence)
	})

	t.Run("InsertAndListAll", func(t *testing.T) {
		jobID := fx.seedJob(t, "job", time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC))
		procedureID := fx.seedProcedure(t, 3, 1)

		start := time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC)
		end := start.Add(time.Hour)
		inserted, err := fx.store.Insert(context.Background(), Schedule{
			JobID: jobID, ProcedureID: procedureID, Start: start, End: end,
			PlannedTime: 1, PlannedManpower: 1,
		})
		require.NoError(t, err)
		require.NotZero(t, inserted.ID)

		all, err := fx.store.ListAll(context.Background())
		require.NoError(t, err)
		require.Len(t, all, 1)
		require.Equal(t, jobID, all[0].JobID)
		require.True(t, all[0].Start.Equal(start))
		require.True(t, all[0].End.Equal(end))
	})

	t.Run("ConflictsFindsOverlap", func(t *testing.T) {
		jobID := fx.seedJob(t, "job", time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC))
		procedureID := fx.seedProcedure(t, 4, 1)

		start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
		end := start.Add(time.Hour)
		_, err := fx.store.Insert(context.Background(), Schedule{
			JobID: jobID, ProcedureID: procedureID, Start: start, End: end,
		})
		require.NoError(t, err)

		hits, err := fx.store.Conflicts(context.Background(), procedureID, start.Add(30*time.Minute), end.Add(30*time.Minute))
		require.NoError(t, err)
		require.Len(t, hits, 1)

		none, err := fx.store.Conflicts(context.Background(), procedureID, end, end.Add(time.Hour))
		require.NoError(t, err)
		require.Empty(t, none)
	})

	t.Run("ClearRemovesAllSchedules", func(t *testing.T) {
		jobID := fx.seedJob(t, "job", time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC))
		procedureID := fx.seedProcedure(t, 5, 1)
		_, err := fx.store.Insert(context.Background(), Schedule{
			JobID: jobID, ProcedureID: procedureID,
			Start: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)

		require.NoError(t, fx.store.Clear(context.Background()))

		all, err := fx.store.ListAll(context.Background())
		require.NoError(t, err)
		require.Empty(t, all)
	})

	t.Run("TransactionRollsBackOnError", func(t *testing.T) {
		jobID := fx.seedJob(t, "job", time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC))
		procedureID := fx.seedProcedure(t, 6, 1)

		boom := context.DeadlineExceeded
		err := fx.store.Transaction(context.Background(), func(tx ScheduleStore) error {
			_, err := tx.Insert(context.Background(), Schedule{
				JobID: jobID, ProcedureID: procedureID,
				Start: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
				End:   time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
			})
			require.NoError(t, err)
			return boom
		})
		require.ErrorIs(t, err, boom)

		all, listErr := fx.store.ListAll(context.Background())
		require.NoError(t, listErr)
		require.Empty(t, all)
	})
}
