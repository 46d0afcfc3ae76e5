package render

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

// Time layouts used in titles and footers.
const (
	minuteLayout = "2006-01-02 15:04 UTC"
	secondLayout = "2006-01-02 15:04:05 UTC"
)

// RenderGeneric draws f on plain longitude/latitude axes with a vertical
// colorbar. When box is set the axes span exactly the box, even if the
// cropped field is empty.
func RenderGeneric(f domain.Field, box *domain.Box, scale domain.ColorScale, o Options, path string) (Output, error) {
	o = o.withDefaults(10*vg.Inch, 10*vg.Inch, color.White)
	fig := NewFigure(o)
	defer fig.Close()

	p := plot.New()
	styleAxes(p, color.Black, 14, 12, 10)
	p.Title.Text = "NOAA Radar Reflectivity\n" + o.Clock.Now().UTC().Format(minuteLayout)
	p.Title.Padding = vg.Points(8)
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"

	grid := plotter.NewGrid()
	gridLine := draw.LineStyle{
		Color:  color.NRGBA{A: 77},
		Width:  vg.Points(0.5),
		Dashes: []vg.Length{vg.Points(3), vg.Points(2)},
	}
	grid.Vertical, grid.Horizontal = gridLine, gridLine

	if !f.Values.Empty() {
		p.Add(NewMesh(f, scale, nil))
	}
	p.Add(grid)
	if box != nil {
		p.X.Min, p.X.Max = box.LonMin, box.LonMax
		p.Y.Min, p.Y.Max = box.LatMin, box.LatMax
	}

	dc := fig.Canvas()
	p.Draw(sub(dc, 0, 0, 0.87, 1))

	bar := newColorBarPlot(scale, colorBarStyle{
		Label:     "Reflectivity (dBZ)",
		Stride:    1,
		Vertical:  true,
		Fg:        color.Black,
		Outline:   color.Black,
		LabelSize: 12,
		TickSize:  9,
	})
	bar.Draw(sub(dc, 0.88, 0.12, 0.98, 0.9))

	return saveFigure(fig, path)
}
