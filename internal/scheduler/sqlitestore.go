package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// sqliteDBPair is the subset of db.DBPair the SQLite store needs; accepting
// the interface rather than the concrete type means this file does not
// import internal/db.
type sqliteDBPair interface {
	Reader() *sql.DB
	Writer() *sql.DB
}

// sqlExecutor is satisfied by both *sql.DB and *sql.Tx, letting SQLiteStore
// run its queries unchanged whether or not it is bound to a transaction.
type sqlExecutor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLiteStore implements JobStore, ProcedureStore and ScheduleStore against
// a SQLite-backed reader/writer pool. It is the default backend.
type SQLiteStore struct {
	reader sqlExecutor
	writer sqlExecutor
	rawWriter *sql.DB // retained to open transactions; nil on a tx-bound instance
	tx        sqlExecutor
}

// NewSQLiteStore builds a SQLiteStore from a reader/writer pool.
func NewSQLiteStore(pair sqliteDBPair) *SQLiteStore {
	return &SQLiteStore{reader: pair.Reader(), writer: pair.Writer(), rawWriter: pair.Writer()}
}

func (s *SQLiteStore) readConn() sqlExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.reader
}

func (s *SQLiteStore) writeConn() sqlExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.writer
}

const timeLayout = time.RFC3339Nano

func (s *SQLiteStore) ListJobs(ctx context.Context) ([]Job, error) {
	rows, err := s.readConn().QueryContext(ctx, `
		SELECT id, name, description, deadline_date, deadline_time
		FROM jobs
		ORDER BY deadline_date, deadline_time, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		var deadlineDate string
		if err := rows.Scan(&j.ID, &j.Name, &j.Description, &deadlineDate, &j.DeadlineTime); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan job: %w", err)
		}
		parsed, err := time.Parse("2006-01-02", deadlineDate)
		if err != nil {
			return nil, fmt.Errorf("sqlitestore: parse deadline_date %q: %w", deadlineDate, err)
		}
		j.DeadlineDate = parsed
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *SQLiteStore) ListProcedures(ctx context.Context) ([]Procedure, error) {
	rows, err := s.readConn().QueryContext(ctx, `
		SELECT id, sequence, name, description, planned_time_hours, planned_manpower, is_prod, is_store
		FROM procedures
		ORDER BY sequence`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list procedures: %w", err)
	}
	defer rows.Close()

	var procedures []Procedure
	for rows.Next() {
		var p Procedure
		if err := rows.Scan(&p.ID, &p.Sequence, &p.Name, &p.Description, &p.PlannedTimeHours, &p.PlannedManpower, &p.IsProd, &p.IsStore); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan procedure: %w", err)
		}
		procedures = append(procedures, p)
	}
	return procedures, rows.Err()
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.writeConn().ExecContext(ctx, `DELETE FROM schedules`)
	if err != nil {
		return fmt.Errorf("sqlitestore: clear: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Conflicts(ctx context.Context, procedureID int64, start, end time.Time) ([]Schedule, error) {
	rows, err := s.readConn().QueryContext(ctx, `
		SELECT id, job_id, procedure_id, start_datetime, end_datetime, planned_time, planned_manpower
		FROM schedules
		WHERE procedure_id = ? AND start_datetime < ? AND end_datetime > ?`,
		procedureID, end.Format(timeLayout), start.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: conflicts: %w", err)
	}
	defer rows.Close()
	return scanSchedules(rows)
}

func (s *SQLiteStore) Insert(ctx context.Context, row Schedule) (Schedule, error) {
	res, err := s.writeConn().ExecContext(ctx, `
		INSERT INTO schedules (job_id, procedure_id, start_datetime, end_datetime, planned_time, planned_manpower)
		VALUES (?, ?, ?, ?, ?, ?)`,
		row.JobID, row.ProcedureID, row.Start.Format(timeLayout), row.End.Format(timeLayout), row.PlannedTime, row.PlannedManpower)
	if err != nil {
		return Schedule{}, fmt.Errorf("sqlitestore: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Schedule{}, fmt.Errorf("sqlitestore: insert id: %w", err)
	}
	row.ID = id
	return row, nil
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]Schedule, error) {
	rows, err := s.readConn().QueryContext(ctx, `
		SELECT id, job_id, procedure_id, start_datetime, end_datetime, planned_time, planned_manpower
		FROM schedules
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list all: %w", err)
	}
	defer rows.Close()
	return scanSchedules(rows)
}

func (s *SQLiteStore) ListForJob(ctx context.Context, jobID int64) ([]Schedule, error) {
	rows, err := s.readConn().QueryContext(ctx, `
		SELECT id, job_id, procedure_id, start_datetime, end_datetime, planned_time, planned_manpower
		FROM schedules
		WHERE job_id = ?`, jobID)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list for job: %w", err)
	}
	defer rows.Close()
	return scanSchedules(rows)
}

func (s *SQLiteStore) Transaction(ctx context.Context, fn func(tx ScheduleStore) error) error {
	if s.rawWriter == nil {
		return fmt.Errorf("sqlitestore: nested transactions are not supported")
	}
	tx, err := s.rawWriter.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin tx: %w", err)
	}
	bound := &SQLiteStore{reader: s.reader, writer: s.writer, tx: tx}
	if err := fn(bound); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitestore: commit: %w", err)
	}
	return nil
}

func scanSchedules(rows *sql.Rows) ([]Schedule, error) {
	var out []Schedule
	for rows.Next() {
		var row Schedule
		var start, end string
		if err := rows.Scan(&row.ID, &row.JobID, &row.ProcedureID, &start, &end, &row.PlannedTime, &row.PlannedManpower); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan schedule: %w", err)
		}
		parsedStart, err := time.Parse(timeLayout, start)
		if err != nil {
			return nil, fmt.Errorf("sqlitestore: parse start %q: %w", start, err)
		}
		parsedEnd, err := time.Parse(timeLayout, end)
		if err != nil {
			return nil, fmt.Errorf("sqlitestore: parse end %q: %w", end, err)
		}
		row.Start = parsedStart
		row.End = parsedEnd
		out = append(out, row)
	}
	return out, rows.Err()
}
