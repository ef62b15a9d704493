package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"swarmops-sim/internal/api"
	"swarmops-sim/internal/config"
	"swarmops-sim/internal/logging"
	"swarmops-sim/internal/sim"
)

var (
	simConfigPath string
	simSchemaPath string
	simTick       time.Duration
	simPrintOnly  bool
	simColor      bool
	simTUI        bool
	simSummary    bool
	simLogFile    string
	simHTTPAddr   string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the real-time swarm simulator",
	Long:  "simulate starts the fixed-timestep swarm engine with the configured scenario, serving the operator API and emitting telemetry.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(simConfigPath, simSchemaPath)
		if err != nil {
			return err
		}
		settings := config.Env()

		writer, eventWriter, cleanup, err := newWriters(cfg, simPrintOnly, simColor, simTUI, simSummary, simLogFile)
		if err != nil {
			return err
		}
		defer cleanup()

		simID := settings.SimID
		if simID == "" {
			simID = "sim-" + uuid.NewString()[:8]
		}
		tickInterval := settings.TickInterval
		if cmd.Flags().Changed("tick") {
			tickInterval = simTick
		}
		addr := settings.HTTPAddr
		if cmd.Flags().Changed("http") {
			addr = simHTTPAddr
		}

		log := logging.New()
		ctx, cancel := context.WithCancel(logging.NewContext(context.Background(), log))
		defer cancel()

		simulator := sim.NewSimulator(simID, cfg, writer, eventWriter, tickInterval, nil, nil)

		// Interactive writers steer the clock and spawn hostiles
		// through callbacks instead of the HTTP API.
		if c, ok := writer.(sim.Controller); ok {
			c.SetControls(sim.ClockControls{
				SetPaused:    simulator.SetPaused,
				SetDirection: simulator.SetDirection,
				JumpBack:     simulator.JumpBack,
			})
		}
		if sp, ok := writer.(sim.HostileSpawner); ok {
			sp.SetSpawner(simulator.SpawnHostile)
		}

		srv := api.NewServer(simulator, settings.CORSOrigin, settings.PushInterval)
		go func() {
			if sw, ok := writer.(sim.APIStatusWriter); ok {
				sw.SetAPIStatus(true)
			}
			log.Info("api listening", "addr", addr)
			if err := srv.Start(ctx, addr); err != nil && err != http.ErrServerClosed {
				log.Error("api server failed", "err", err)
			}
			if sw, ok := writer.(sim.APIStatusWriter); ok {
				sw.SetAPIStatus(false)
			}
		}()

		go simulator.Run(ctx)

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs

		cancel()
		log.Info("simulation stopped")
		return nil
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "schemas/simulation.cue", "Path to CUE schema file")
	simulateCmd.Flags().DurationVar(&simTick, "tick", 20*time.Millisecond, "Engine tick interval (e.g. 20ms, 100ms)")
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print telemetry to STDOUT instead of writing to DB")
	simulateCmd.Flags().BoolVar(&simColor, "color", false, "Colored human-readable STDOUT telemetry")
	simulateCmd.Flags().BoolVar(&simTUI, "tui", false, "Interactive terminal dashboard")
	simulateCmd.Flags().BoolVar(&simSummary, "summary", false, "Print a run summary on exit")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export telemetry/event/state logs (JSONL)")
	simulateCmd.Flags().StringVar(&simHTTPAddr, "http", ":8000", "Operator API listen address")
}
