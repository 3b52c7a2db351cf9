// Package scenario defines serializable planning scenes: an input path
// with drivable-area bounds and an ego start state. Scenarios come from
// JSON files, from the built-in generators, or from an OSM extract.
package scenario

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"pathd.dev/pathd/geom"
)

// EgoState is where the vehicle starts and how fast it is going.
type EgoState struct {
	Pose     geom.Pose `json:"pose"`
	Velocity float64   `json:"velocity_mps"`
}

// Scenario is one complete planner input.
type Scenario struct {
	Name       string           `json:"name"`
	PathPoints []geom.PathPoint `json:"path_points"`
	LeftBound  []geom.Point     `json:"left_bound"`
	RightBound []geom.Point     `json:"right_bound"`
	Ego        EgoState         `json:"ego"`
}

// Load reads a scenario from a JSON file.
func Load(path string) (Scenario, error) {
	var s Scenario
	data, err := os.ReadFile(path)
	if err != nil {
		return s, errors.Wrap(err, "could not read scenario file")
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, errors.Wrap(err, "could not parse scenario file")
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Save writes the scenario as indented JSON.
func (s Scenario) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not marshal scenario")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "could not write scenario file")
	}
	return nil
}

func (s Scenario) Validate() error {
	if len(s.PathPoints) < 2 {
		return errors.New("scenario needs at least two path points")
	}
	if len(s.LeftBound) < 2 || len(s.RightBound) < 2 {
		return errors.New("scenario needs left and right bounds with at least two points each")
	}
	return nil
}
