package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive shell for jobs/procedures/schedule/regenerate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl()
		},
	}
}

func runRepl() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "schedctl> ",
		HistoryFile:     "",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	client := newClient()
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "jobs":
			jobs, err := client.listJobs()
			if err != nil {
				fmt.Println(err)
				continue
			}
			for _, j := range jobs {
				fmt.Printf("%d\t%s\t%s %s\n", j.ID, j.Name, j.DeadlineDate, j.DeadlineTime)
			}
		case "procedures":
			procedures, err := client.listProcedures()
			if err != nil {
				fmt.Println(err)
				continue
			}
			for _, p := range procedures {
				fmt.Printf("%d\t%d\t%s\t%dh\n", p.ID, p.Sequence, p.Name, p.PlannedTimeHours)
			}
		case "schedule":
			if len(fields) != 2 {
				fmt.Println("usage: schedule <job-id>")
				continue
			}
			jobID, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				fmt.Println("invalid job id")
				continue
			}
			rows, err := client.jobSchedule(jobID)
			if err != nil {
				fmt.Println(err)
				continue
			}
			for _, row := range rows {
				fmt.Printf("%d\t%s\t%s\n", row.ProcedureID, row.Start.Format("2006-01-02 15:04"), row.End.Format("2006-01-02 15:04"))
			}
		case "regenerate":
			result, err := client.regenerate()
			if err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Printf("scheduled %d/%d jobs\n", result.JobsScheduled, result.JobsTotal)
		case "exit", "quit":
			return nil
		default:
			fmt.Println("commands: jobs, procedures, schedule <job-id>, regenerate, exit")
		}
	}
}
