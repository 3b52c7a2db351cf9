// Package viz renders scenarios and planner output to PNG for offline
// inspection.
package viz

import (
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"pathd.dev/pathd/geom"
	"pathd.dev/pathd/scenario"
)

// Render draws the scenario bounds, the input path, and the optimized
// trajectory to a PNG at path.
func Render(scen scenario.Scenario, optimized []geom.TrajectoryPoint, path string) error {
	p := plot.New()
	p.Title.Text = scen.Name
	p.X.Label.Text = "x [m]"
	p.Y.Label.Text = "y [m]"

	if err := addLine(p, pointsXY(scen.LeftBound), color.RGBA{R: 128, G: 128, B: 128, A: 255}, vg.Points(1)); err != nil {
		return err
	}
	if err := addLine(p, pointsXY(scen.RightBound), color.RGBA{R: 128, G: 128, B: 128, A: 255}, vg.Points(1)); err != nil {
		return err
	}

	input := make(plotter.XYs, len(scen.PathPoints))
	for i, pp := range scen.PathPoints {
		input[i].X = pp.Pose.Position.X
		input[i].Y = pp.Pose.Position.Y
	}
	if err := addLine(p, input, color.RGBA{B: 255, A: 255}, vg.Points(1)); err != nil {
		return err
	}

	if len(optimized) > 0 {
		out := make(plotter.XYs, len(optimized))
		for i, tp := range optimized {
			out[i].X = tp.Pose.Position.X
			out[i].Y = tp.Pose.Position.Y
		}
		if err := addLine(p, out, color.RGBA{R: 255, A: 255}, vg.Points(2)); err != nil {
			return err
		}
	}

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return errors.Wrap(err, "could not save plot")
	}
	return nil
}

func addLine(p *plot.Plot, xys plotter.XYs, c color.Color, width vg.Length) error {
	line, err := plotter.NewLine(xys)
	if err != nil {
		return errors.Wrap(err, "could not build plot line")
	}
	line.Color = c
	line.Width = width
	p.Add(line)
	return nil
}

func pointsXY(pts []geom.Point) plotter.XYs {
	xys := make(plotter.XYs, len(pts))
	for i, pt := range pts {
		xys[i].X = pt.X
		xys[i].Y = pt.Y
	}
	return xys
}
