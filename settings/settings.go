// Package settings holds the small set of runtime-adjustable knobs that
// persist across restarts through the params store, separate from the full
// YAML config.
package settings

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"pathd.dev/pathd/params"
	"pathd.dev/pathd/planner"
)

var (
	Settings = PathdSettings{}
)

type PathdSettings struct {
	LogLevel                 string  `json:"log_level"`
	EnableAvoidance          bool    `json:"enable_avoidance"`
	EnableSkipOptimization   bool    `json:"enable_skip_optimization"`
	EnableDrivableAreaStop   bool    `json:"enable_drivable_area_stop"`
	LatErrorWeight           float64 `json:"lat_error_weight"`
	SteerInputWeight         float64 `json:"steer_input_weight"`
	SteerRateWeight          float64 `json:"steer_rate_weight"`
	SoftCollisionFreeWeight  float64 `json:"soft_collision_free_weight"`
	MaxOptimizationTimeMS    float64 `json:"max_optimization_time_ms"`
	ReplanMaxDeltaTimeSec    float64 `json:"replan_max_delta_time_sec"`
	OutputDeltaArcLength     float64 `json:"output_delta_arc_length"`
	OutputBackwardTrajLength float64 `json:"output_backward_traj_length"`
}

func (s *PathdSettings) Default() {
	p := planner.DefaultParam()
	s.LogLevel = "error"
	s.EnableAvoidance = p.MPT.EnableAvoidance
	s.EnableSkipOptimization = p.EnableSkipOptimization
	s.EnableDrivableAreaStop = p.EnableOutsideDrivableAreaStop
	s.LatErrorWeight = p.MPT.LatErrorWeight
	s.SteerInputWeight = p.MPT.SteerInputWeight
	s.SteerRateWeight = p.MPT.SteerRateWeight
	s.SoftCollisionFreeWeight = p.MPT.SoftCollisionFreeWeight
	s.MaxOptimizationTimeMS = p.MPT.MaxOptimizationTimeMS
	s.ReplanMaxDeltaTimeSec = p.Replan.MaxDeltaTimeSec
	s.OutputDeltaArcLength = p.Trajectory.OutputDeltaArcLength
	s.OutputBackwardTrajLength = p.Trajectory.OutputBackwardTrajLength
}

func (s *PathdSettings) Load() (success bool) {
	s.Default() // set defaults so settings not already in param are defaulted
	data, err := params.GetParam(params.PATHD_SETTINGS)
	if err != nil {
		slog.Debug("could not read settings param", "error", err)
		return false
	}

	err = json.Unmarshal(data, s)
	if err != nil {
		slog.Error("could not parse settings param", "error", err)
		return false
	}

	s.SetLogLevel()

	return true
}

func (s *PathdSettings) LoadWithRetries(tries int) {
	for range tries {
		if s.Load() {
			break
		}
		time.Sleep(1 * time.Second)
	}
	s.Save()
}

func (s *PathdSettings) Save() {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		slog.Error("could not marshal settings", "error", err)
		return
	}
	err = params.PutParam(params.PATHD_SETTINGS, data)
	if err != nil {
		slog.Error("could not persist settings", "error", err)
		return
	}
}

// ApplyTo overlays the persisted knobs onto a full planner config.
func (s *PathdSettings) ApplyTo(p *planner.Param) {
	p.MPT.EnableAvoidance = s.EnableAvoidance
	p.EnableSkipOptimization = s.EnableSkipOptimization
	p.EnableOutsideDrivableAreaStop = s.EnableDrivableAreaStop
	p.MPT.LatErrorWeight = s.LatErrorWeight
	p.MPT.SteerInputWeight = s.SteerInputWeight
	p.MPT.SteerRateWeight = s.SteerRateWeight
	p.MPT.SoftCollisionFreeWeight = s.SoftCollisionFreeWeight
	p.MPT.MaxOptimizationTimeMS = s.MaxOptimizationTimeMS
	p.Replan.MaxDeltaTimeSec = s.ReplanMaxDeltaTimeSec
	p.Trajectory.OutputDeltaArcLength = s.OutputDeltaArcLength
	p.Trajectory.OutputBackwardTrajLength = s.OutputBackwardTrajLength
}

func (s *PathdSettings) SetLogLevel() {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		slog.SetLogLoggerLevel(slog.LevelDebug)
	case "info":
		slog.SetLogLoggerLevel(slog.LevelInfo)
	case "warn":
		slog.SetLogLoggerLevel(slog.LevelWarn)
	case "error":
		slog.SetLogLoggerLevel(slog.LevelError)
	default:
		slog.SetLogLoggerLevel(slog.LevelError)
	}
}
