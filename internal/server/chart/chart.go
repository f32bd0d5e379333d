// Package chart draws the weight history graph served by GET /entries/graph.
package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"sync"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	Width  = 8 * vg.Inch
	Height = 5 * vg.Inch
	DPI    = 300
)

var goalColor = color.RGBA{G: 128, A: 255}

// mu serializes every render in the process.
var mu sync.Mutex

// Point is one weight measurement.
type Point struct {
	Date   time.Time
	Weight float64
}

// Render draws points as a line with a dot per entry, plus a dashed green
// goal line spanning the first to the last date, and returns a PNG.
// No points means no image: the result is nil.
func Render(points []Point, goal float64, unitsName string) ([]byte, error) {
	if len(points) == 0 {
		return nil, nil
	}

	mu.Lock()
	defer mu.Unlock()

	p := plot.New()
	p.X.Label.Text = "Date"
	p.Y.Label.Text = fmt.Sprintf("Weight (%s)", unitsName)
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X = float64(pt.Date.Unix())
		xys[i].Y = pt.Weight
	}

	line, dots, err := plotter.NewLinePoints(xys)
	if err != nil {
		return nil, err
	}
	dots.Shape = draw.CircleGlyph{}
	dots.Radius = vg.Points(2)

	goalLine, err := plotter.NewLine(plotter.XYs{
		{X: xys[0].X, Y: goal},
		{X: xys[len(xys)-1].X, Y: goal},
	})
	if err != nil {
		return nil, err
	}
	goalLine.Color = goalColor
	goalLine.Width = vg.Points(2)
	goalLine.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}

	p.Add(line, dots, goalLine)

	c := vgimg.NewWith(vgimg.UseWH(Width, Height), vgimg.UseDPI(DPI))
	p.Draw(draw.New(c))

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
