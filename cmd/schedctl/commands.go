package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	warnColor    = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
)

func newJobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := newClient().listJobs()
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Name", "Deadline Date", "Deadline Time"})
			table.SetHeaderColor(
				tablewriter.Colors{tablewriter.FgCyanColor, tablewriter.Bold},
				tablewriter.Colors{tablewriter.FgCyanColor, tablewriter.Bold},
				tablewriter.Colors{tablewriter.FgCyanColor, tablewriter.Bold},
				tablewriter.Colors{tablewriter.FgCyanColor, tablewriter.Bold},
			)
			for _, j := range jobs {
				table.Append([]string{strconv.FormatInt(j.ID, 10), j.Name, j.DeadlineDate, j.DeadlineTime})
			}
			table.Render()
			return nil
		},
	}
}

func newProceduresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "procedures",
		Short: "List procedures",
		RunE: func(cmd *cobra.Command, args []string) error {
			procedures, err := newClient().listProcedures()
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Seq", "Name", "Planned Hours", "Manpower"})
			for _, p := range procedures {
				table.Append([]string{
					strconv.FormatInt(p.ID, 10),
					strconv.Itoa(p.Sequence),
					p.Name,
					strconv.Itoa(p.PlannedTimeHours),
					strconv.Itoa(p.PlannedManpower),
				})
			}
			table.Render()
			return nil
		},
	}
}

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule <job-id>",
		Short: "Show a job's placed schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}
			rows, err := newClient().jobSchedule(jobID)
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Procedure", "Start", "End", "Duration"})
			for _, row := range rows {
				table.Append([]string{
					strconv.FormatInt(row.ProcedureID, 10),
					row.Start.Format("2006-01-02 15:04"),
					row.End.Format("2006-01-02 15:04"),
					humanize.RelTime(row.Start, row.End, "", ""),
				})
			}
			table.Render()
			return nil
		},
	}
	return cmd
}

func newRegenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate",
		Short: "Clear and rebuild the entire schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := newClient().regenerate()
			if err != nil {
				errorColor.Fprintln(os.Stderr, err)
				return err
			}
			successColor.Printf("scheduled %d/%d jobs in %s\n", result.JobsScheduled, result.JobsTotal, humanize.Comma(result.DurationMs)+"ms")
			if len(result.UnschedulableJobIDs) > 0 {
				warnColor.Printf("unschedulable: %v\n", result.UnschedulableJobIDs)
			}
			if len(result.DeadlineMissedJobIDs) > 0 {
				warnColor.Printf("deadline missed: %v\n", result.DeadlineMissedJobIDs)
			}
			return nil
		},
	}
}
