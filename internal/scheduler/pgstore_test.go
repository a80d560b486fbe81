package scheduler

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// testPGStore connects to TEST_DATABASE_URL and returns a PGStore backed by
// a freshly-applied schema. It skips the test when no Postgres is available,
// matching the integration-test pattern the rest of the pack uses for
// optional external dependencies.
func testPGStore(t *testing.T) *PGStore {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Skipf("failed to connect to test database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("failed to ping test database: %v", err)
	}

	if err := EnsurePGSchema(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("apply schema: %v", err)
	}

	_, _ = pool.Exec(ctx, "DELETE FROM schedules")
	_, _ = pool.Exec(ctx, "DELETE FROM procedures")
	_, _ = pool.Exec(ctx, "DELETE FROM jobs")

	t.Cleanup(pool.Close)
	return NewPGStore(pool)
}

func pgSeedJob(t *testing.T, store *PGStore, name string, deadline time.Time) int64 {
	t.Helper()
	var id int64
	err := store.pool.QueryRow(context.Background(), `
		INSERT INTO jobs (name, deadline_date, deadline_time) VALUES ($1, $2, $3)
		RETURNING id`,
		name, deadline.Format("2006-01-02"), "17:00").Scan(&id)
	require.NoError(t, err)
	return id
}

func pgSeedProcedure(t *testing.T, store *PGStore, sequence int, hours int) int64 {
	t.Helper()
	var id int64
	err := store.pool.QueryRow(context.Background(), `
		INSERT INTO procedures (sequence, name, planned_time_hours, planned_manpower) VALUES ($1, $2, $3, 1)
		RETURNING id`,
		sequence, "procedure", hours).Scan(&id)
	require.NoError(t, err)
	return id
}

// TestPGStoreInvariants runs the same invariant suite as
// TestSQLiteStoreInvariants against Postgres, so a behavioral drift between
// the two ScheduleStore backends shows up as a test failure on whichever
// backend is available in CI rather than as a production surprise.
func TestPGStoreInvariants(t *testing.T) {
	store := testPGStore(t)
	runScheduleStoreInvariants(t, storeFixture{
		store: store,
		seedJob: func(t *testing.T, name string, deadline time.Time) int64 {
			return pgSeedJob(t, store, name, deadline)
		},
		seedProcedure: func(t *testing.T, sequence, hours int) int64 {
			return pgSeedProcedure(t, store, sequence, hours)
		},
	})
}
