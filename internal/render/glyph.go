package render

import (
	"image/color"
	"math"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// StarGlyph is a filled five-pointed star with an outline.
type StarGlyph struct {
	Edge      color.Color
	EdgeWidth vg.Length
}

// DrawGlyph implements draw.GlyphDrawer. sty.Radius is the outer radius.
func (g StarGlyph) DrawGlyph(c *draw.Canvas, sty draw.GlyphStyle, pt vg.Point) {
	pts := starPoints(pt, sty.Radius)
	c.FillPolygon(sty.Color, pts)
	if g.Edge != nil && g.EdgeWidth > 0 {
		c.StrokeLines(draw.LineStyle{Color: g.Edge, Width: g.EdgeWidth}, append(pts, pts[0]))
	}
}

func starPoints(center vg.Point, r vg.Length) []vg.Point {
	const inner = 0.382
	pts := make([]vg.Point, 10)
	for i := range pts {
		rad := r
		if i%2 == 1 {
			rad = r * inner
		}
		a := math.Pi/2 + float64(i)*math.Pi/5
		pts[i] = vg.Point{
			X: center.X + rad*vg.Length(math.Cos(a)),
			Y: center.Y + rad*vg.Length(math.Sin(a)),
		}
	}
	return pts
}
