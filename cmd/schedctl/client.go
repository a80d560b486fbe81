package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type apiClient struct {
	baseURL string
	token   string
}

type listEnvelope struct {
	Data []json.RawMessage `json:"data"`
}

type job struct {
	ID           int64  `json:"ID"`
	Name         string `json:"Name"`
	DeadlineDate string `json:"DeadlineDate"`
	DeadlineTime string `json:"DeadlineTime"`
}

type procedure struct {
	ID               int64  `json:"ID"`
	Sequence         int    `json:"Sequence"`
	Name             string `json:"Name"`
	PlannedTimeHours int    `json:"PlannedTimeHours"`
	PlannedManpower  int    `json:"PlannedManpower"`
}

type scheduleRow struct {
	ID          int64     `json:"ID"`
	JobID       int64     `json:"JobID"`
	ProcedureID int64     `json:"ProcedureID"`
	Start       time.Time `json:"Start"`
	End         time.Time `json:"End"`
}

type regenerateResult struct {
	JobsTotal            int     `json:"jobs_total"`
	JobsScheduled        int     `json:"jobs_scheduled"`
	UnschedulableJobIDs  []int64 `json:"unschedulable_job_ids"`
	DeadlineMissedJobIDs []int64 `json:"deadline_missed_job_ids"`
	DurationMs           int64   `json:"duration_ms"`
}

func (c *apiClient) get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *apiClient) post(path string, out any) error {
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *apiClient) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("scheduler API returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) listJobs() ([]job, error) {
	var env listEnvelope
	if err := c.get("/v1/jobs", &env); err != nil {
		return nil, err
	}
	jobs := make([]job, 0, len(env.Data))
	for _, raw := range env.Data {
		var j job
		if err := json.Unmarshal(raw, &j); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

func (c *apiClient) listProcedures() ([]procedure, error) {
	var env listEnvelope
	if err := c.get("/v1/procedures", &env); err != nil {
		return nil, err
	}
	procedures := make([]procedure, 0, len(env.Data))
	for _, raw := range env.Data {
		var p procedure
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		procedures = append(procedures, p)
	}
	return procedures, nil
}

func (c *apiClient) jobSchedule(jobID int64) ([]scheduleRow, error) {
	var env listEnvelope
	if err := c.get(fmt.Sprintf("/v1/jobs/%d/schedule", jobID), &env); err != nil {
		return nil, err
	}
	rows := make([]scheduleRow, 0, len(env.Data))
	for _, raw := range env.Data {
		var row scheduleRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (c *apiClient) regenerate() (regenerateResult, error) {
	var result regenerateResult
	err := c.post("/v1/regenerate", &result)
	return result, err
}
