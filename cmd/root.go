package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"surgesim/internal/banner"
	"surgesim/internal/chaos"
	"surgesim/internal/cli"
	"surgesim/internal/config"
	"surgesim/internal/loadgen"
	"surgesim/internal/mockai"
	"surgesim/internal/storage"
	"surgesim/internal/tui"
)

var (
	cfgFile string

	// CLI Flags
	target   string
	agentID  string
	timeout  int
	headless bool
	stages   []string
)

var rootCmd = &cobra.Command{
	Use:   "surgesim",
	Short: "SurgeSim - Inference Service Chaos & Load Harness",
	Long: `
SurgeSim drives staged concurrent load against a synthetic AI inference
service, measuring per-task SLAs and end-to-end agent turn latency.

Two halves:
1. surgesim mock       Run the chaos-capable mock inference server
2. surgesim -t URL     Run the staged load test against a target`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoadTest()
	},
}

func Execute() {
	// Custom Help with Banner
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(mockCmd)
	rootCmd.AddCommand(historyCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.surgesim.yaml)")

	rootCmd.Flags().StringVarP(&target, "target", "t", "http://localhost:8000", "Target base URL")
	rootCmd.Flags().StringVar(&agentID, "agent", "", "Agent id for the turn-latency probe (auto-discovered when empty)")
	rootCmd.Flags().IntVar(&timeout, "timeout", 30, "Request timeout in seconds")
	rootCmd.Flags().BoolVar(&headless, "headless", false, "Run without the TUI dashboard (CI mode)")
	rootCmd.Flags().StringSliceVar(&stages, "stage", nil, "Stage as endsAt:users:spawnRate (repeatable, e.g. 30:10:5)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".surgesim")
		}
	}
	config.Init()
	viper.ReadInConfig()
}

func newLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func runLoadTest() error {
	logger := newLogger()
	defer logger.Sync()

	harness := config.LoadHarness(target)
	if agentID != "" {
		harness.AgentID = agentID
	}

	plan, err := parseStages(stages)
	if err != nil {
		return err
	}

	cfg := loadgen.Config{
		Target:       harness.Target,
		TimeoutSec:   timeout,
		Stages:       plan,
		AgentID:      harness.AgentID,
		PollTimeout:  harness.PollTimeout,
		PollWaitData: harness.PollWaitData,
	}

	if err := cli.Verify(cfg.Target, 5*time.Second); err != nil {
		return err
	}

	if headless {
		return cli.Start(cfg, logger)
	}

	st, elapsed, err := tui.Start(cfg, logger)
	if err != nil {
		return err
	}
	cli.Report(cfg, st, elapsed, logger)
	return nil
}

func parseStages(raw []string) ([]loadgen.Stage, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	plan := make([]loadgen.Stage, 0, len(raw))
	for _, s := range raw {
		var st loadgen.Stage
		if _, err := fmt.Sscanf(s, "%d:%d:%d", &st.EndsAt, &st.Users, &st.SpawnRate); err != nil {
			return nil, fmt.Errorf("invalid stage %q (want endsAt:users:spawnRate): %w", s, err)
		}
		plan = append(plan, st)
	}
	if err := loadgen.ValidateStages(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// --- Mock Server Subcommand ---

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Run the synthetic inference service",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		defer logger.Sync()

		simCfg := config.LoadSim()
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			simCfg.Port = port
		}

		baseline := chaos.Baseline()
		baseline.LatencyMin = simCfg.MinLatency
		baseline.LatencyMax = simCfg.MaxLatency

		srv := mockai.NewServer(simCfg, logger, chaos.NewControllerWith(baseline))
		logger.Info("starting mock inference server", zap.Int("port", simCfg.Port))
		return srv.ListenAndServe()
	},
}

// --- History Subcommand ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved load test runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.NewStore()
		if err != nil {
			return err
		}
		defer store.Close()

		items := store.List()
		if len(items) == 0 {
			fmt.Println("No saved runs.")
			return nil
		}

		fmt.Printf("%-36s  %-20s  %8s  %6s  %9s\n", "ID", "WHEN", "REQS", "FAIL%", "P99(ms)")
		for _, item := range items {
			fmt.Printf("%-36s  %-20s  %8d  %5.1f%%  %9.1f\n",
				item.ID,
				item.Timestamp.Format("2006-01-02 15:04:05"),
				item.Summary.TotalRequests,
				item.Summary.ErrorRate,
				item.Summary.P99LatencyMs,
			)
		}
		return nil
	},
}

func init() {
	mockCmd.Flags().IntP("port", "p", 0, "Listen port (overrides SURGESIM_PORT)")
}
