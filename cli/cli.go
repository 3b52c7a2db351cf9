package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"pathd.dev/pathd/config"
	"pathd.dev/pathd/params"
	"pathd.dev/pathd/scenario"
	"pathd.dev/pathd/sim"
	"pathd.dev/pathd/viz"
)

func Handle() {
	shouldExit := true
	cmd := &cli.Command{
		Commands: []*cli.Command{
			{
				Name:    "run",
				Aliases: []string{"r"},
				Usage:   "Replay a scenario through the planner",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Category: "Inputs and Outputs",
						Name:     "scenario",
						Aliases:  []string{"s"},
						Usage:    "The scenario json file to replay",
					},
					&cli.StringFlag{
						Category: "Inputs and Outputs",
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "A yaml config file with vehicle and planner tuning",
					},
					&cli.StringFlag{
						Category: "Inputs and Outputs",
						Name:     "plot",
						Usage:    "Write a png of the final trajectory to this path",
					},
					&cli.IntFlag{
						Name:  "ticks",
						Usage: "How many planning cycles to run",
						Value: 50,
					},
					&cli.Float64Flag{
						Name:  "tick-ms",
						Usage: "Simulated time between planning cycles in milliseconds",
						Value: 100,
					},
					&cli.BoolFlag{
						Name:    "watch",
						Aliases: []string{"w"},
						Usage:   "Show a live progress view while the replay runs",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runScenario(ctx, cmd)
				},
			},
			{
				Name:    "scenario",
				Aliases: []string{"sc"},
				Usage:   "Create scenario files",
				Commands: []*cli.Command{
					{
						Name:  "generate",
						Usage: "Generate a synthetic scenario",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "type",
								Usage: "The scenario shape, straight or arc",
								Value: "straight",
							},
							&cli.Float64Flag{
								Category: "Shape",
								Name:     "length",
								Usage:    "Length of the straight centerline in meters",
								Value:    100,
							},
							&cli.Float64Flag{
								Category: "Shape",
								Name:     "radius",
								Usage:    "Arc radius in meters, negative turns right",
								Value:    50,
							},
							&cli.Float64Flag{
								Category: "Shape",
								Name:     "sweep",
								Usage:    "Arc sweep angle in radians",
								Value:    1.57,
							},
							&cli.Float64Flag{
								Name:  "step",
								Usage: "Centerline sample spacing in meters",
								Value: 1.0,
							},
							&cli.Float64Flag{
								Name:  "velocity",
								Usage: "Constant speed profile in meters per second",
								Value: 8.0,
							},
							&cli.Float64Flag{
								Name:  "lane-width",
								Usage: "Corridor width in meters",
								Value: 4.0,
							},
							&cli.Float64Flag{
								Name:  "ego-offset",
								Usage: "Ego start offset from the centerline in meters",
								Value: 0,
							},
							&cli.StringFlag{
								Category: "Inputs and Outputs",
								Name:     "output",
								Aliases:  []string{"o"},
								Usage:    "Where to write the scenario json",
								Value:    "./scenario.json",
							},
						},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							return generateScenario(cmd)
						},
					},
					{
						Name:  "import-osm",
						Usage: "Build a scenario from an open street maps xml extract",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Category: "Inputs and Outputs",
								Name:     "input-file",
								Aliases:  []string{"i"},
								Usage:    "The osm xml file to read",
								Value:    "./map.osm",
							},
							&cli.StringFlag{
								Name:  "way",
								Usage: "Import the way with this name instead of the longest road",
							},
							&cli.Float64Flag{
								Name:  "lane-width",
								Usage: "Synthesized corridor width in meters",
								Value: 4.0,
							},
							&cli.StringFlag{
								Category: "Inputs and Outputs",
								Name:     "output",
								Aliases:  []string{"o"},
								Usage:    "Where to write the scenario json",
								Value:    "./scenario.json",
							},
						},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							p := scenario.DefaultImportOSMParam()
							p.WayName = cmd.String("way")
							p.LaneWidth = cmd.Float64("lane-width")
							s, err := scenario.ImportOSM(cmd.String("input-file"), p)
							if err != nil {
								return err
							}
							return s.Save(cmd.String("output"))
						},
					},
				},
			},
			{
				Name:    "interactive",
				Aliases: []string{"i"},
				Usage:   "Adjust persisted pathd settings",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					interactive()
					return nil
				},
			},
		},
		Name:  "Pathd",
		Usage: "Start an instance of pathd",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			shouldExit = false
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}

	if shouldExit {
		os.Exit(0)
	}
}

func loadScenario(path string) (scenario.Scenario, error) {
	if path != "" {
		s, err := scenario.Load(path)
		if err == nil {
			if err := params.PutParam(params.LAST_SCENARIO, []byte(path)); err != nil {
				fmt.Printf("could not remember scenario path: %v\n", err)
			}
		}
		return s, err
	}
	return scenario.Straight(100, scenario.DefaultGenerateParam()), nil
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runScenario(ctx context.Context, cmd *cli.Command) error {
	scen, err := loadScenario(cmd.String("scenario"))
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	runner := sim.NewRunner(scen, cfg.Planner, cfg.Vehicle)
	ticks := int(cmd.Int("ticks"))
	interval := time.Duration(cmd.Float64("tick-ms") * float64(time.Millisecond))

	var last sim.TickResult
	if cmd.Bool("watch") {
		last, err = watch(ctx, runner, ticks, interval)
		if err != nil {
			return err
		}
	} else {
		err = runner.Run(ctx, ticks, 0, func(tr sim.TickResult) {
			last = tr
			status := "ok"
			if !tr.Result.Success {
				status = tr.Result.ErrorMessage
			}
			fmt.Printf("tick %3d  points=%3d  solve=%6.2fms  %s\n",
				tr.Tick, len(tr.Result.Trajectory), tr.Result.ComputationTimeMS, status)
		})
		if err != nil {
			return err
		}
	}

	if out := cmd.String("plot"); out != "" {
		if err := viz.Render(scen, last.Result.Trajectory, out); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", out)
	}
	return nil
}

func generateScenario(cmd *cli.Command) error {
	p := scenario.GenerateParam{
		Step:         cmd.Float64("step"),
		Velocity:     cmd.Float64("velocity"),
		LaneWidth:    cmd.Float64("lane-width"),
		EgoLatOffset: cmd.Float64("ego-offset"),
	}

	var s scenario.Scenario
	switch cmd.String("type") {
	case "straight":
		s = scenario.Straight(cmd.Float64("length"), p)
	case "arc":
		s = scenario.Arc(cmd.Float64("radius"), cmd.Float64("sweep"), p)
	default:
		return fmt.Errorf("unknown scenario type %q", cmd.String("type"))
	}
	return s.Save(cmd.String("output"))
}
