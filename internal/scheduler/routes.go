package scheduler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/prodfloor/scheduler/internal/api"
	"github.com/prodfloor/scheduler/internal/apperrors"
)

// Routes bundles the collaborators every scheduler HTTP handler needs.
type Routes struct {
	Jobs       JobStore
	Procedures ProcedureStore
	Schedules  ScheduleStore
	Batch      *BatchScheduler
	Lock       RegenerateLock
	Notifier   *ScheduleNotifier
	Logger     *logrus.Logger
}

// RegisterRoutes wires the scheduler's HTTP surface onto router.
func RegisterRoutes(router chi.Router, rt Routes) {
	router.Method(http.MethodGet, "/v1/jobs", api.Handler(rt.listJobs))
	router.Method(http.MethodGet, "/v1/jobs/{job_id}/schedule", api.Handler(rt.jobSchedule))
	router.Method(http.MethodGet, "/v1/procedures", api.Handler(rt.listProcedures))
	router.Method(http.MethodGet, "/v1/schedule", api.Handler(rt.listSchedule))
	router.Method(http.MethodGet, "/v1/procedures/{procedure_id}/calendar.ics", api.Handler(rt.procedureCalendar))
	router.Method(http.MethodPost, "/v1/regenerate", api.Handler(rt.regenerate))
	router.Method(http.MethodGet, "/v1/regenerate/ws", api.Handler(rt.regenerateSocket))
}

func (rt Routes) listJobs(w http.ResponseWriter, r *http.Request) error {
	jobs, err := rt.Jobs.ListJobs(r.Context())
	if err != nil {
		return apperrors.NewInternalError("list jobs: " + err.Error())
	}
	return api.WriteList(w, "/v1/jobs", jobs, false)
}

func (rt Routes) listProcedures(w http.ResponseWriter, r *http.Request) error {
	procedures, err := rt.Procedures.ListProcedures(r.Context())
	if err != nil {
		return apperrors.NewInternalError("list procedures: " + err.Error())
	}
	return api.WriteList(w, "/v1/procedures", procedures, false)
}

func (rt Routes) listSchedule(w http.ResponseWriter, r *http.Request) error {
	rows, err := rt.Schedules.ListAll(r.Context())
	if err != nil {
		return apperrors.NewInternalError("list schedule: " + err.Error())
	}
	return api.WriteList(w, "/v1/schedule", rows, false)
}

func (rt Routes) jobSchedule(w http.ResponseWriter, r *http.Request) error {
	jobID, err := strconv.ParseInt(chi.URLParam(r, "job_id"), 10, 64)
	if err != nil {
		return apperrors.NewValidationError("invalid job_id", nil)
	}
	rows, err := rt.Schedules.ListForJob(r.Context(), jobID)
	if err != nil {
		return apperrors.NewInternalError("list job schedule: " + err.Error())
	}
	if len(rows) == 0 {
		return apperrors.NewNotFoundResource("job schedule", strconv.FormatInt(jobID, 10))
	}
	return api.WriteList(w, "/v1/jobs/"+strconv.FormatInt(jobID, 10)+"/schedule", rows, false)
}

func (rt Routes) procedureCalendar(w http.ResponseWriter, r *http.Request) error {
	procedureID, err := strconv.ParseInt(chi.URLParam(r, "procedure_id"), 10, 64)
	if err != nil {
		return apperrors.NewValidationError("invalid procedure_id", nil)
	}
	procedures, err := rt.Procedures.ListProcedures(r.Context())
	if err != nil {
		return apperrors.NewInternalError("list procedures: " + err.Error())
	}
	name := ""
	found := false
	for _, p := range procedures {
		if p.ID == procedureID {
			name = p.Name
			found = true
			break
		}
	}
	if !found {
		return apperrors.NewNotFoundResource("procedure", strconv.FormatInt(procedureID, 10))
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "inline; filename=\"procedure-"+strconv.FormatInt(procedureID, 10)+".ics\"")
	if err := RenderCalendar(r.Context(), w, rt.Schedules, rt.Jobs, procedureID, name); err != nil {
		return apperrors.NewInternalError("render calendar: " + err.Error())
	}
	return nil
}

// regenerate runs a full regeneration. The schedule table is always
// cleared and rebuilt from the current Job/Procedure snapshot, but two
// regenerations must never run concurrently, hence the RegenerateLock.
func (rt Routes) regenerate(w http.ResponseWriter, r *http.Request) error {
	release, err := rt.Lock.Acquire(r.Context())
	if err != nil {
		if err == ErrRegenerateInProgress {
			return apperrors.NewRegenerateInProgressError()
		}
		if err == ErrLockUnavailable {
			return apperrors.NewStoreUnavailableError("regenerate lock backend unavailable")
		}
		return apperrors.NewInternalError("acquire regenerate lock: " + err.Error())
	}
	defer release()

	summary, err := rt.Batch.Regenerate(r.Context())
	if err != nil {
		return apperrors.NewStoreUnavailableError("regenerate: " + err.Error())
	}

	LogRegeneration(rt.Logger, summary)

	if rt.Notifier != nil {
		rt.Notifier.Publish(summary)
	}

	return api.WriteAction(w, http.StatusOK, regenerateResult{
		Object:               "regeneration",
		JobsTotal:            summary.JobsTotal,
		JobsScheduled:        summary.JobsScheduled,
		UnschedulableJobIDs:  summary.UnschedulableJobIDs,
		DeadlineMissedJobIDs: summary.DeadlineMissedJobIDs,
		DurationMs:           summary.Duration.Milliseconds(),
	})
}

type regenerateResult struct {
	Object               string  `json:"object"`
	JobsTotal            int     `json:"jobs_total"`
	JobsScheduled        int     `json:"jobs_scheduled"`
	UnschedulableJobIDs  []int64 `json:"unschedulable_job_ids,omitempty"`
	DeadlineMissedJobIDs []int64 `json:"deadline_missed_job_ids,omitempty"`
	DurationMs           int64   `json:"duration_ms"`
}

// regenerateSocket upgrades to a WebSocket connection that receives a
// schedule.regenerated event every time /v1/regenerate completes.
func (rt Routes) regenerateSocket(w http.ResponseWriter, r *http.Request) error {
	if rt.Notifier == nil {
		return apperrors.NewNotFoundError("schedule notifications are not configured", nil)
	}
	return rt.Notifier.Upgrade(w, r)
}
