package render

import (
	"image/color"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

// ColorBar draws a discrete scale as equal-width bins, one per color,
// regardless of the spacing of the bounds.
type ColorBar struct {
	Scale    domain.ColorScale
	Vertical bool
	// Outline around the bar. A nil color draws nothing.
	Outline draw.LineStyle
}

// Plot implements plot.Plotter. Bin i spans [i, i+1] along the bar.
func (b ColorBar) Plot(c draw.Canvas, p *plot.Plot) {
	trX, trY := p.Transforms(&c)
	for i, clr := range b.Scale.Colors {
		lo, hi := float64(i), float64(i+1)
		if b.Vertical {
			c.FillPolygon(clr, rect(trX(0), trY(lo), trX(1), trY(hi)))
		} else {
			c.FillPolygon(clr, rect(trX(lo), trY(0), trX(hi), trY(1)))
		}
	}
	if b.Outline.Color == nil {
		return
	}
	n := float64(len(b.Scale.Colors))
	var border []vg.Point
	if b.Vertical {
		border = rect(trX(0), trY(0), trX(1), trY(n))
	} else {
		border = rect(trX(0), trY(0), trX(n), trY(1))
	}
	c.StrokeLines(b.Outline, append(border, border[0]))
}

// DataRange implements plot.DataRanger.
func (b ColorBar) DataRange() (xmin, xmax, ymin, ymax float64) {
	n := float64(len(b.Scale.Colors))
	if b.Vertical {
		return 0, 1, 0, n
	}
	return 0, n, 0, 1
}

func rect(x0, y0, x1, y1 vg.Length) []vg.Point {
	return []vg.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

// boundTicks labels every stride-th bin edge with its bound value.
func boundTicks(s domain.ColorScale, stride int) plot.ConstantTicks {
	ticks := make(plot.ConstantTicks, 0, len(s.Bounds))
	for i, v := range s.Bounds {
		t := plot.Tick{Value: float64(i)}
		if i%stride == 0 {
			t.Label = strconv.FormatFloat(v, 'g', -1, 64)
		}
		ticks = append(ticks, t)
	}
	return ticks
}

type colorBarStyle struct {
	Label     string
	Stride    int
	Vertical  bool
	Fg        color.Color
	Outline   color.Color
	LabelSize vg.Length
	TickSize  vg.Length
}

// newColorBarPlot builds a plot holding only the bar and its labelled axis.
func newColorBarPlot(s domain.ColorScale, st colorBarStyle) *plot.Plot {
	p := plot.New()
	p.BackgroundColor = color.Transparent
	bar := ColorBar{Scale: s, Vertical: st.Vertical}
	if st.Outline != nil {
		bar.Outline = draw.LineStyle{Color: st.Outline, Width: vg.Points(0.8)}
	}
	p.Add(bar)
	styleAxes(p, st.Fg, st.LabelSize, st.LabelSize, st.TickSize)

	n := float64(len(s.Colors))
	along, across := &p.X, &p.Y
	if st.Vertical {
		along, across = &p.Y, &p.X
	}
	along.Min, along.Max = 0, n
	along.Tick.Marker = boundTicks(s, max(st.Stride, 1))
	along.Label.Text = st.Label
	across.Min, across.Max = 0, 1
	across.Tick.Marker = plot.ConstantTicks(nil)
	across.LineStyle.Color = color.Transparent
	along.LineStyle.Color = color.Transparent
	return p
}
