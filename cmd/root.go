package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/traffic-sim/traffic-sim/sim"
	"github.com/traffic-sim/traffic-sim/sim/stage"
)

var (
	// CLI flags shared by the run and serve commands
	stagePath  string  // Stage config file (JSON or YAML); empty = built-in stage
	maxPackets int     // Entity pool capacity
	tickMs     float64 // Simulated time per tick (ms)
	seed       int64   // Master seed for deterministic emission/routing
	logLevel   string  // Log verbosity level

	// run-only flags
	horizonMs float64 // Hard stop for the run loop (simulated ms)
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "traffic-sim",
	Short: "Tick-based packet traffic simulator for gateway/LB/server/DB topologies",
}

// setupLogging applies the --log flag.
func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// loadStageConfig reads --stage, or falls back to the built-in stage.
func loadStageConfig() stage.Config {
	if stagePath == "" {
		return DefaultStage()
	}
	cfg, err := stage.Load(stagePath)
	if err != nil {
		logrus.Fatalf("Failed to load stage: %v", err)
	}
	return cfg
}

// runCmd steps a simulation to completion at a fixed tick delta and prints
// the metrics report with a pass/fail verdict against the stage SLA target.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a stage to completion and report metrics",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		stageCfg := loadStageConfig()
		engineCfg := sim.DefaultConfig()
		engineCfg.Seed = seed

		s := sim.New(maxPackets, engineCfg)
		if err := s.LoadStage(stageCfg); err != nil {
			logrus.Fatalf("Failed to load stage: %v", err)
		}

		logrus.Infof("Starting run: stage=%q pool=%d tick=%.2fms horizon=%.0fms seed=%d",
			stageCfg.Meta.Title, maxPackets, tickMs, horizonMs, seed)

		startTime := time.Now()
		for s.ElapsedMs() < horizonMs {
			s.Tick(tickMs)
			if s.PendingWaveCount() == 0 && s.ActiveCount() == 0 {
				break
			}
		}
		s.Report(time.Since(startTime))

		snap := s.Stats()
		if snap.SLARate >= stageCfg.Meta.SLATarget {
			fmt.Println("Result: SLA met")
		} else {
			fmt.Println("Result: SLA missed")
		}

		logrus.Info("Simulation complete.")
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	for _, c := range []*cobra.Command{runCmd, serveCmd} {
		c.Flags().StringVar(&stagePath, "stage", "", "Stage config file (.json, .yaml); empty uses the built-in stage")
		c.Flags().IntVar(&maxPackets, "max-packets", 10000, "Maximum number of concurrently active packets")
		c.Flags().Float64Var(&tickMs, "tick-ms", 16.667, "Simulated milliseconds per tick")
		c.Flags().Int64Var(&seed, "seed", 42, "Seed for deterministic emission and routing")
		c.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	}

	runCmd.Flags().Float64Var(&horizonMs, "horizon-ms", 120000, "Maximum simulated time before the run stops")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}
