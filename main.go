package main

import (
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"pathd.dev/pathd/cli"
	"pathd.dev/pathd/config"
	"pathd.dev/pathd/params"
	"pathd.dev/pathd/scenario"
	"pathd.dev/pathd/settings"
	"pathd.dev/pathd/sim"
)

const LOOP_DELAY = 100 * time.Millisecond

func main() {
	slog.SetLogLoggerLevel(slog.LevelError)
	params.EnsureParamDirectories()

	cli.Handle()

	settings.Settings.LoadWithRetries(5)

	cfg := config.Default()
	settings.Settings.ApplyTo(&cfg.Planner)

	scen := loadLastScenario()
	runner := sim.NewRunner(scen, cfg.Planner, cfg.Vehicle)

	for {
		time.Sleep(LOOP_DELAY)
		tr := runner.Step(LOOP_DELAY.Seconds())
		if !tr.Result.Success {
			slog.Warn("planning cycle failed", "tick", tr.Tick, "error", tr.Result.ErrorMessage)
			continue
		}
		slog.Debug("planned",
			"tick", tr.Tick,
			"points", len(tr.Result.Trajectory),
			"solve_ms", tr.Result.ComputationTimeMS,
			"iterations", tr.Result.QP.Iterations,
			"replanned", tr.Result.Replanned,
		)
	}
}

// loadLastScenario restores the scenario used last time, falling back to a
// synthetic straight corridor.
func loadLastScenario() scenario.Scenario {
	data, err := params.GetParam(params.LAST_SCENARIO)
	if err == nil && len(data) > 0 {
		scen, err := scenario.Load(string(data))
		if err == nil {
			return scen
		}
		slog.Warn("", "error", errors.Wrap(err, "could not load last scenario"))
	}
	return scenario.Straight(100, scenario.DefaultGenerateParam())
}
