// Package render draws flight-path charts.
package render

import (
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Shravan-1908/projectile-motion-simulator/internal/projectile"
)

// ErrNoPoints is returned when there is nothing to draw.
var ErrNoPoints = errors.New("trajectory has no points")

// Formats lists the accepted output formats.
var Formats = map[string]string{
	"png": "image/png",
	"svg": "image/svg+xml",
}

// Options controls the chart layout.
type Options struct {
	Title  string
	Width  vg.Length
	Height vg.Length
	Format string // "png" or "svg"
}

// DefaultOptions returns a 6x4 inch PNG layout.
func DefaultOptions() Options {
	return Options{
		Title:  "Trajectory",
		Width:  6 * vg.Inch,
		Height: 4 * vg.Inch,
		Format: "png",
	}
}

// Trajectory writes an x/y chart of pts, marking the apex of g.
func Trajectory(w io.Writer, g projectile.GroundToGround, pts []projectile.Point, opts Options) error {
	if len(pts) == 0 {
		return ErrNoPoints
	}
	if _, ok := Formats[opts.Format]; !ok {
		return fmt.Errorf("unsupported format %q", opts.Format)
	}

	xys := make(plotter.XYs, len(pts))
	for i, p := range pts {
		xys[i].X = p.X
		xys[i].Y = p.Y
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("trajectory line: %w", err)
	}
	p.Add(line)
	p.Legend.Add(fmt.Sprintf("range %.3g m, tof %.3g s", g.Range(), g.TimeOfFlight()), line)

	apex := g.Coordinates(g.UY / -g.AY)
	if mark, err := plotter.NewScatter(plotter.XYs{{X: apex.X, Y: apex.Y}}); err == nil {
		p.Add(mark)
		p.Legend.Add(fmt.Sprintf("hmax %.3g m", g.HMax()), mark)
	}

	wt, err := p.WriterTo(opts.Width, opts.Height, opts.Format)
	if err != nil {
		return fmt.Errorf("plot canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write plot: %w", err)
	}
	return nil
}
