package db

const schemaSQL = `
CREATE TABLE IF NOT EXISTS jobs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  description TEXT,
  deadline_date TEXT NOT NULL,
  deadline_time TEXT NOT NULL,
  created_at TEXT NOT NULL DEFAULT (datetime('now')),
  updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_jobs_deadline ON jobs(deadline_date, deadline_time, id);

CREATE TABLE IF NOT EXISTS procedures (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  sequence INTEGER NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  planned_time_hours INTEGER NOT NULL,
  planned_manpower INTEGER NOT NULL DEFAULT 1,
  is_prod INTEGER NOT NULL DEFAULT 1,
  is_store INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL DEFAULT (datetime('now')),
  updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_procedures_sequence ON procedures(sequence);

CREATE TABLE IF NOT EXISTS schedules (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  job_id INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
  procedure_id INTEGER NOT NULL REFERENCES procedures(id) ON DELETE CASCADE,
  start_datetime TEXT NOT NULL,
  end_datetime TEXT NOT NULL,
  planned_time INTEGER NOT NULL,
  planned_manpower INTEGER NOT NULL,
  created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_schedules_procedure_window ON schedules(procedure_id, start_datetime, end_datetime);
CREATE INDEX IF NOT EXISTS idx_schedules_job ON schedules(job_id);
`
