package scheduler

import (
	"context"
	"fmt"
	"io"

	ical "github.com/emersion/go-ical"
)

// RenderCalendar writes every Schedule row for one procedure as a VEVENT
// to w, producing a read-only iCalendar feed a shop-floor terminal can
// subscribe to. SUMMARY is "<procedure name> - <job name>" (the job name
// falls back to "Job <id>" when empty); DTSTART/DTEND come straight from
// the Schedule row.
func RenderCalendar(ctx context.Context, w io.Writer, schedules ScheduleStore, jobs JobStore, procedureID int64, procedureName string) error {
	rows, err := schedules.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("ical: list schedules: %w", err)
	}
	jobList, err := jobs.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("ical: list jobs: %w", err)
	}
	jobNames := make(map[int64]string, len(jobList))
	for _, j := range jobList {
		jobNames[j.ID] = j.Name
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//prodfloor//scheduler//EN")

	for _, row := range rows {
		if row.ProcedureID != procedureID {
			continue
		}
		event := ical.NewComponent(ical.CompEvent)
		event.Props.SetText(ical.PropUID, fmt.Sprintf("schedule-%d@prodfloor", row.ID))
		event.Props.SetDateTime(ical.PropDateTimeStart, row.Start)
		event.Props.SetDateTime(ical.PropDateTimeEnd, row.End)
		name := jobNames[row.JobID]
		if name == "" {
			name = fmt.Sprintf("Job %d", row.JobID)
		}
		event.Props.SetText(ical.PropSummary, fmt.Sprintf("%s - %s", procedureName, name))
		cal.Children = append(cal.Children, event.Component)
	}

	return ical.NewEncoder(w).Encode(cal)
}
