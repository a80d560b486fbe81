package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements JobStore, ProcedureStore and ScheduleStore against a
// Postgres pool via pgx. It satisfies the same interfaces as SQLiteStore so
// a deployment that already runs Postgres can swap backends without
// touching the scheduling engine.
type PGStore struct {
	pool *pgxpool.Pool
	tx   pgx.Tx // set inside Transaction
}

// NewPGStore builds a PGStore from an already-configured pgx pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// pgSchemaSQL is the Postgres counterpart of internal/db's SQLite schema:
// the same three tables, translated to SERIAL/BOOLEAN/TIMESTAMPTZ.
const pgSchemaSQL = `
CREATE TABLE IF NOT EXISTS jobs (
	id SERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	deadline_date DATE NOT NULL,
	deadline_time TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS procedures (
	id SERIAL PRIMARY KEY,
	sequence INTEGER NOT NULL,
	name TEXT NOT NULL,
	description TEXT,
	planned_time_hours INTEGER NOT NULL,
	planned_manpower INTEGER NOT NULL DEFAULT 1,
	is_prod BOOLEAN NOT NULL DEFAULT true,
	is_store BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS schedules (
	id SERIAL PRIMARY KEY,
	job_id INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
	procedure_id INTEGER NOT NULL REFERENCES procedures(id) ON DELETE CASCADE,
	start_datetime TIMESTAMPTZ NOT NULL,
	end_datetime TIMESTAMPTZ NOT NULL,
	planned_time INTEGER NOT NULL,
	planned_manpower INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_schedules_procedure_window ON schedules(procedure_id, start_datetime, end_datetime);
CREATE INDEX IF NOT EXISTS idx_schedules_job ON schedules(job_id);
`

// EnsurePGSchema applies pgSchemaSQL against pool, creating the jobs,
// procedures, and schedules tables if they do not already exist.
func EnsurePGSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, pgSchemaSQL); err != nil {
		return fmt.Errorf("pgstore: apply schema: %w", err)
	}
	return nil
}

func (s *PGStore) ListJobs(ctx context.Context) ([]Job, error) {
	rows, err := s.query(ctx, `
		SELECT id, name, description, deadline_date, deadline_time
		FROM jobs
		ORDER BY deadline_date, deadline_time, id`)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		var deadlineDate time.Time
		if err := rows.Scan(&j.ID, &j.Name, &j.Description, &deadlineDate, &j.DeadlineTime); err != nil {
			return nil, fmt.Errorf("pgstore: scan job: %w", err)
		}
		j.DeadlineDate = deadlineDate
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *PGStore) ListProcedures(ctx context.Context) ([]Procedure, error) {
	rows, err := s.query(ctx, `
		SELECT id, sequence, name, description, planned_time_hours, planned_manpower, is_prod, is_store
		FROM procedures
		ORDER BY sequence`)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list procedures: %w", err)
	}
	defer rows.Close()

	var procedures []Procedure
	for rows.Next() {
		var p Procedure
		if err := rows.Scan(&p.ID, &p.Sequence, &p.Name, &p.Description, &p.PlannedTimeHours, &p.PlannedManpower, &p.IsProd, &p.IsStore); err != nil {
			return nil, fmt.Errorf("pgstore: scan procedure: %w", err)
		}
		procedures = append(procedures, p)
	}
	return procedures, rows.Err()
}

func (s *PGStore) Clear(ctx context.Context) error {
	_, err := s.exec(ctx, `DELETE FROM schedules`)
	if err != nil {
		return fmt.Errorf("pgstore: clear: %w", err)
	}
	return nil
}

func (s *PGStore) Conflicts(ctx context.Context, procedureID int64, start, end time.Time) ([]Schedule, error) {
	rows, err := s.query(ctx, `
		SELECT id, job_id, procedure_id, start_datetime, end_datetime, planned_time, planned_manpower
		FROM schedules
		WHERE procedure_id = $1 AND start_datetime < $2 AND end_datetime > $3`,
		procedureID, end, start)
	if err != nil {
		return nil, fmt.Errorf("pgstore: conflicts: %w", err)
	}
	defer rows.Close()
	return scanPGSchedules(rows)
}

func (s *PGStore) Insert(ctx context.Context, row Schedule) (Schedule, error) {
	err := s.queryRow(ctx, `
		INSERT INTO schedules (job_id, procedure_id, start_datetime, end_datetime, planned_time, planned_manpower)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		row.JobID, row.ProcedureID, row.Start, row.End, row.PlannedTime, row.PlannedManpower,
	).Scan(&row.ID)
	if err != nil {
		return Schedule{}, fmt.Errorf("pgstore: insert: %w", err)
	}
	return row, nil
}

func (s *PGStore) ListAll(ctx context.Context) ([]Schedule, error) {
	rows, err := s.query(ctx, `
		SELECT id, job_id, procedure_id, start_datetime, end_datetime, planned_time, planned_manpower
		FROM schedules
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list all: %w", err)
	}
	defer rows.Close()
	return scanPGSchedules(rows)
}

func (s *PGStore) ListForJob(ctx context.Context, jobID int64) ([]Schedule, error) {
	rows, err := s.query(ctx, `
		SELECT id, job_id, procedure_id, start_datetime, end_datetime, planned_time, planned_manpower
		FROM schedules
		WHERE job_id = $1`, jobID)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list for job: %w", err)
	}
	defer rows.Close()
	return scanPGSchedules(rows)
}

func (s *PGStore) Transaction(ctx context.Context, fn func(tx ScheduleStore) error) error {
	if s.tx != nil {
		return fmt.Errorf("pgstore: nested transactions are not supported")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgstore: begin tx: %w", err)
	}
	bound := &PGStore{pool: s.pool, tx: tx}
	if err := fn(bound); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgstore: commit: %w", err)
	}
	return nil
}

func (s *PGStore) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if s.tx != nil {
		return s.tx.Query(ctx, sql, args...)
	}
	return s.pool.Query(ctx, sql, args...)
}

func (s *PGStore) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if s.tx != nil {
		return s.tx.QueryRow(ctx, sql, args...)
	}
	return s.pool.QueryRow(ctx, sql, args...)
}

func (s *PGStore) exec(ctx context.Context, sql string, args ...any) (any, error) {
	if s.tx != nil {
		tag, err := s.tx.Exec(ctx, sql, args...)
		return tag, err
	}
	tag, err := s.pool.Exec(ctx, sql, args...)
	return tag, err
}

func scanPGSchedules(rows pgx.Rows) ([]Schedule, error) {
	var out []Schedule
	for rows.Next() {
		var row Schedule
		if err := rows.Scan(&row.ID, &row.JobID, &row.ProcedureID, &row.Start, &row.End, &row.PlannedTime, &row.PlannedManpower); err != nil {
			return nil, fmt.Errorf("pgstore: scan schedule: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
