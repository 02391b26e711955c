package main

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TudorHulban/taskpacker/internal/store"
)

func runsCmd() *cobra.Command {
	runs := &cobra.Command{Use: "runs", Short: "Inspect stored runs"}
	runs.AddCommand(runsListCmd())
	runs.AddCommand(runsShowCmd())
	return runs
}

func runsListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, latest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := settings()
			if err != nil {
				return err
			}

			return withStore(cfg, func(s *store.Store) error {
				runs, err := s.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}

				if viper.GetBool("json") {
					return printJSON(runs)
				}

				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Kind", "Status", "Objective", "Makespan", "Failures", "Created"})
				for _, run := range runs {
					tw.AppendRow(table.Row{run.ID, run.Name, run.Kind, run.Status, run.Objective, run.Makespan, run.Failures, run.CreatedAt.Format("2006-01-02 15:04:05")})
				}
				tw.Render()

				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs, 0 for all")

	return cmd
}

func runsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the schedule of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := settings()
			if err != nil {
				return err
			}

			return withStore(cfg, func(s *store.Store) error {
				run, err := s.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				rows, err := run.ScheduledTasks()
				if err != nil {
					return err
				}

				if viper.GetBool("json") {
					return printJSON(rows)
				}

				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.SetTitle("%s %s (%s)", run.Kind, run.ID, run.Status)
				tw.AppendHeader(table.Row{"Task", "Start", "End", "Duration", "Lateness"})
				for _, row := range rows {
					tw.AppendRow(table.Row{row.Name, row.Start, row.End, row.Duration, row.Lateness})
				}
				tw.AppendFooter(table.Row{"", "", run.Makespan, "", run.Objective})
				tw.Render()

				if run.Errors != "" {
					logger.Printf("run %s failures:\n%s", run.ID, run.Errors)
				}

				return nil
			})
		},
	}
}
