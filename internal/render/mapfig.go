package render

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/ctessum/geom/proj"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

const (
	lonLatProj = "+proj=longlat"
	// Lambert conformal conic on the sphere, standard parallels 33°N and 45°N.
	lambertProj = "+proj=lcc +lat_1=33.000000 +lat_2=45.000000 +lat_0=%f +lon_0=%f +x_0=0 +y_0=0 +a=6370997.000000 +b=6370997.000000 +to_meter=1"

	meshAlpha = 0.85
	// Event label offset in degrees.
	labelOffset = 0.08
)

var (
	mapBackground  = hex("#0a0e27")
	axesBackground = hex("#1a1f3a")
	markerColor    = hex("#ff4444")
	outlineColor   = hex("#555577")
	footerColor    = hex("#888888")
)

// MapOptions configures RenderMap.
type MapOptions struct {
	Options
	Basemap Basemap
	// Label next to the event marker. Defaults to "Event".
	Label string
}

// Lambert returns a transform from lon/lat degrees to a Lambert conformal
// projection centered on the given point.
func Lambert(centerLat, centerLon float64) (proj.Transformer, error) {
	src, err := proj.Parse(lonLatProj)
	if err != nil {
		return nil, errors.Wrap(err, "parse lon/lat projection")
	}
	dst, err := proj.Parse(fmt.Sprintf(lambertProj, centerLat, centerLon))
	if err != nil {
		return nil, errors.Wrap(err, "parse lambert projection")
	}
	t, err := src.NewTransform(dst)
	if err != nil {
		return nil, errors.Wrap(err, "lambert transform")
	}
	return t, nil
}

// RenderMap draws f on a dark Lambert conformal map covering region, with
// base layers, an event marker at the region center and a horizontal
// colorbar. Cells below the scale floor are left transparent.
func RenderMap(f domain.Field, region domain.Radius, scale domain.ColorScale, o MapOptions, path string) (Output, error) {
	o.Options = o.Options.withDefaults(14*vg.Inch, 11*vg.Inch, mapBackground)
	if o.Label == "" {
		o.Label = "Event"
	}
	t, err := Lambert(region.CenterLat, region.CenterLon)
	if err != nil {
		return Output{}, err
	}
	extent := region.Box()
	xmin, xmax, ymin, ymax, err := projectedExtent(extent, t)
	if err != nil {
		return Output{}, err
	}

	fig := NewFigure(o.Options)
	defer fig.Close()

	p := plot.New()
	p.BackgroundColor = axesBackground
	p.HideAxes()
	p.Title.TextStyle = textStyle(14, color.White, true)
	p.Title.Padding = vg.Points(12)
	p.Title.Text = "NOAA MRMS — Reflectivity at Lowest Altitude (0.50°)\n" + titleTime(f, o.Clock.Now())

	pad := region.Degrees / 2
	window := domain.Box{
		LatMin: extent.LatMin - pad, LatMax: extent.LatMax + pad,
		LonMin: extent.LonMin - pad, LonMax: extent.LonMax + pad,
	}
	for _, l := range o.Basemap.Load(window, t) {
		p.Add(l)
	}

	mesh := NewMesh(f, scale, Projection(t))
	mesh.Alpha = meshAlpha
	p.Add(mesh)

	cx, cy, err := t(region.CenterLon, region.CenterLat)
	if err != nil {
		return Output{}, errors.Wrap(err, "project event location")
	}
	star, err := plotter.NewScatter(plotter.XYs{{X: cx, Y: cy}})
	if err != nil {
		return Output{}, errors.WithStack(err)
	}
	star.GlyphStyle = draw.GlyphStyle{
		Color:  markerColor,
		Radius: vg.Points(11),
		Shape:  StarGlyph{Edge: color.White, EdgeWidth: vg.Points(1.2)},
	}
	p.Add(star)

	lx, ly, err := t(region.CenterLon+labelOffset, region.CenterLat+labelOffset)
	if err != nil {
		return Output{}, errors.Wrap(err, "project event label")
	}
	label := textStyle(10, color.White, true)
	label.XAlign, label.YAlign = text.XLeft, text.YBottom
	p.Add(annotation{X: lx, Y: ly, Text: o.Label, Style: label, Stroke: color.Black, Width: vg.Points(3)})

	p.X.Min, p.X.Max = xmin, xmax
	p.Y.Min, p.Y.Max = ymin, ymax

	dc := fig.Canvas()
	p.Draw(equalAspect(p, sub(dc, 0.05, 0.17, 0.95, 0.95)))

	bar := newColorBarPlot(scale, colorBarStyle{
		Label:     "Reflectivity (dBZ)",
		Stride:    2,
		Fg:        color.White,
		Outline:   outlineColor,
		LabelSize: 12,
		TickSize:  9,
	})
	bar.Draw(sub(dc, 0.125, 0.065, 0.875, 0.14))

	footer := textStyle(8, footerColor, false)
	footer.XAlign, footer.YAlign = text.XLeft, text.YBottom
	size := dc.Rectangle.Size()
	dc.FillText(footer, vg.Point{X: dc.Min.X + 0.02*size.X, Y: dc.Min.Y + 0.02*size.Y},
		fmt.Sprintf("Generated %s  •  Source: NOAA MRMS (noaa-mrms-pds S3)", o.Clock.Now().UTC().Format(minuteLayout)))

	return saveFigure(fig, path)
}

// titleTime is the field's valid time, or now when the file carried none.
func titleTime(f domain.Field, now time.Time) string {
	if f.ValidTime.IsZero() {
		return now.UTC().Format(minuteLayout)
	}
	return f.ValidTime.UTC().Format(secondLayout)
}

// projectedExtent samples the edges of box and returns the projected bounds.
func projectedExtent(box domain.Box, t proj.Transformer) (xmin, xmax, ymin, ymax float64, err error) {
	const steps = 16
	xmin, ymin = math.Inf(1), math.Inf(1)
	xmax, ymax = math.Inf(-1), math.Inf(-1)
	for i := 0; i <= steps; i++ {
		f := float64(i) / steps
		lon := box.LonMin + f*(box.LonMax-box.LonMin)
		lat := box.LatMin + f*(box.LatMax-box.LatMin)
		for _, pt := range [][2]float64{{lon, box.LatMin}, {lon, box.LatMax}, {box.LonMin, lat}, {box.LonMax, lat}} {
			x, y, terr := t(pt[0], pt[1])
			if terr != nil {
				return 0, 0, 0, 0, errors.Wrap(terr, "project map extent")
			}
			xmin, xmax = math.Min(xmin, x), math.Max(xmax, x)
			ymin, ymax = math.Min(ymin, y), math.Max(ymax, y)
		}
	}
	return xmin, xmax, ymin, ymax, nil
}

// equalAspect shrinks c so that one projected meter has the same length on
// both axes, keeping it centered.
func equalAspect(p *plot.Plot, c draw.Canvas) draw.Canvas {
	dx, dy := p.X.Max-p.X.Min, p.Y.Max-p.Y.Min
	data := p.DataCanvas(c)
	w, h := data.Rectangle.Size().X, data.Rectangle.Size().Y
	if dx <= 0 || dy <= 0 || w <= 0 || h <= 0 {
		return c
	}
	if want := w * vg.Length(dy/dx); want < h {
		trim := (h - want) / 2
		return draw.Crop(c, 0, 0, trim, -trim)
	}
	want := h * vg.Length(dx/dy)
	trim := (w - want) / 2
	return draw.Crop(c, trim, -trim, 0, 0)
}

// annotation is text placed at a data coordinate with an outline stroke.
type annotation struct {
	X, Y   float64
	Text   string
	Style  text.Style
	Stroke color.Color
	Width  vg.Length
}

func (a annotation) Plot(c draw.Canvas, p *plot.Plot) {
	trX, trY := p.Transforms(&c)
	pt := vg.Point{X: trX(a.X), Y: trY(a.Y)}
	if !c.Contains(pt) {
		return
	}
	outlinedText(c, a.Style, pt, a.Text, a.Stroke, a.Width)
}
