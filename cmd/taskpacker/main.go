package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TudorHulban/taskpacker/internal/config"
	"github.com/TudorHulban/taskpacker/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "taskpacker",
	Short: "Taskpacker schedules tasks on shared resources",
	Long: `Taskpacker places tasks on resources with limited capacity.
- solve: place every task of a document at once, minimizing lateness and makespan.
- series: place processes one after the other, committing each before the next.
- verify: check a committed schedule against its constraints.
- runs: list and show stored runs.
- serve: expose scheduling over HTTP.`,
	SilenceUsage: true,
}

var logger = log.New(os.Stderr, "taskpacker: ", log.LstdFlags)

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	if path := viper.GetString("config"); path != "" {
		viper.SetConfigFile(path)

		if err := viper.ReadInConfig(); err != nil {
			logger.Fatalf("config: read %s: %v", path, err)
		}
	}

	config.BindEnv(viper.GetViper())
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()

	flags.StringP("config", "c", "", "YAML configuration file")
	flags.Duration("time-limit", 0, "solver time limit per solve (default from config)")
	flags.Int64("upper-bound", 0, "scheduling horizon (default from config)")
	flags.Bool("optimize", true, "minimize lateness and makespan instead of stopping at the first schedule")
	flags.String("window-policy", "drop", "committed tasks outside the window: drop or keep")
	flags.String("store-driver", "sqlite", "run store driver: sqlite or mysql")
	flags.String("store-dsn", "", "run store DSN, empty disables persistence")
	flags.Bool("json", false, "output JSON")
	flags.BoolP("verbose", "v", false, "log solver progress")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("solver.time_limit", flags.Lookup("time-limit"))
	_ = viper.BindPFlag("solver.upper_bound", flags.Lookup("upper-bound"))
	_ = viper.BindPFlag("solver.optimize", flags.Lookup("optimize"))
	_ = viper.BindPFlag("solver.window_policy", flags.Lookup("window-policy"))
	_ = viper.BindPFlag("store.driver", flags.Lookup("store-driver"))
	_ = viper.BindPFlag("store.dsn", flags.Lookup("store-dsn"))
	_ = viper.BindPFlag("json", flags.Lookup("json"))
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
}

func registerCommands() {
	rootCmd.AddCommand(solveCmd())
	rootCmd.AddCommand(seriesCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(serveCmd())
}

// --- helpers ---

// settings resolves the configuration from defaults, config file,
// environment and changed flags, in increasing priority.
func settings() (*config.Config, error) {
	return config.FromViper(viper.GetViper())
}

func withStore(cfg *config.Config, fn func(*store.Store) error) error {
	if cfg.Store.DSN == "" {
		return fmt.Errorf("store.dsn is not set, use --store-dsn or TASKPACKER_STORE_DSN")
	}

	s, err := store.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(s)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
