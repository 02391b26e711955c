package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TudorHulban/taskpacker"
	"github.com/TudorHulban/taskpacker/internal/loader"
	"github.com/TudorHulban/taskpacker/internal/report"
	"github.com/TudorHulban/taskpacker/internal/runner"
	"github.com/TudorHulban/taskpacker/internal/store"
)

type planFlags struct {
	export  string
	name    string
	persist bool
}

func (f *planFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.export, "export", "o", "", "write the committed schedule to this YAML file")
	cmd.Flags().StringVar(&f.name, "name", "", "run name when persisting")
	cmd.Flags().BoolVar(&f.persist, "persist", false, "store the committed schedule")
}

func solveCmd() *cobra.Command {
	var flags planFlags

	cmd := &cobra.Command{
		Use:   "solve <document.yaml>",
		Short: "Schedule every task of a document in one solve",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, args[0], runner.ModeSolve, &flags)
		},
	}

	flags.register(cmd)

	return cmd
}

func seriesCmd() *cobra.Command {
	var flags planFlags

	var trials int

	var estimate int64

	var grow bool

	cmd := &cobra.Command{
		Use:   "series <document.yaml>",
		Short: "Schedule the processes of a document one after the other",
		Long: `Each process is solved together with the tasks already committed,
inside a window that follows the previous process. Standalone tasks of the
document are treated as committed. Processes that cannot be placed are
reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, args[0], runner.ModeSeries, &flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&trials, "trials", 0, "attempts per process (default from config)")
	cmd.Flags().Int64Var(&estimate, "estimated-duration", 0, "initial process duration estimate (default from config)")
	cmd.Flags().BoolVar(&grow, "grow-horizon", false, "double the horizon on every retry")
	_ = viper.BindPFlag("series.trials", cmd.Flags().Lookup("trials"))
	_ = viper.BindPFlag("series.estimated_process_duration", cmd.Flags().Lookup("estimated-duration"))
	_ = viper.BindPFlag("series.grow_horizon_on_retry", cmd.Flags().Lookup("grow-horizon"))

	return cmd
}

func runPlan(cmd *cobra.Command, path, mode string, flags *planFlags) error {
	cfg, err := settings()
	if err != nil {
		return err
	}

	plan, err := loader.Load(path)
	if err != nil {
		return err
	}

	result, err := runner.Run(cmd.Context(), &runner.Params{
		Plan:     plan,
		Settings: cfg,
		Logger:   logger,
		Mode:     mode,
		Verbose:  viper.GetBool("verbose"),
	})
	if err != nil {
		return err
	}

	if flags.export != "" {
		if err := loader.WriteFile(flags.export, result.Tasks); err != nil {
			return err
		}

		logger.Printf("exported %d tasks to %s", len(result.Tasks), flags.export)
	}

	if flags.persist {
		err := withStore(cfg, func(s *store.Store) error {
			run, err := result.Save(cmd.Context(), s, flags.name)
			if err != nil {
				return err
			}

			logger.Printf("stored run %s", run.ID)

			return nil
		})
		if err != nil {
			return err
		}
	}

	if viper.GetBool("json") {
		return printJSON(loader.ScheduledTasks(result.Tasks))
	}

	fmt.Printf("%s: %s, objective %d, makespan %d\n", result.Mode, result.Status, result.Objective, result.Makespan)
	report.Schedule(os.Stdout, result.Tasks)
	report.Occupancy(os.Stdout, result.Tasks, result.Resources)

	if result.Mode == runner.ModeSeries {
		report.Bounds(os.Stdout, result.Bounds)
		report.Failures(os.Stdout, result.Failures)
	}

	return nil
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <document.yaml>",
		Short: "Check a committed schedule",
		Long: `Every task must carry a start and a slot for each bounded resource.
Precedences, maximum waits and slot overlaps are checked.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := loader.Load(args[0])
			if err != nil {
				return err
			}

			tasks := plan.AllTasks()

			if err := taskpacker.VerifySchedule(tasks); err != nil {
				return err
			}

			fmt.Printf("%d tasks verified\n", len(tasks))

			return nil
		},
	}
}
