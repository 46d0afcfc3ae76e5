package render

import (
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

// Projection maps lon/lat degrees to plot coordinates.
type Projection func(lon, lat float64) (x, y float64, err error)

// Mesh draws a reflectivity field as colored cell quads. Cell edges sit
// halfway between neighbouring centers and are extrapolated at the borders.
// Masked cells are left transparent.
type Mesh struct {
	Scale domain.ColorScale
	// Alpha in [0,1]; 0 means opaque.
	Alpha float64

	rows, cols int
	values     []float64
	// cell corner positions in plot coordinates, (rows+1)×(cols+1)
	cx, cy []float64
}

// NewMesh prepares field for drawing. proj may be nil for plain lon/lat axes.
func NewMesh(f domain.Field, scale domain.ColorScale, proj Projection) *Mesh {
	m := &Mesh{Scale: scale, rows: f.Values.Rows, cols: f.Values.Cols, values: f.Values.Values}
	if f.Values.Empty() {
		return m
	}
	c := f.Coords.Mesh()
	lat := corners(c.LatGrid)
	lon := corners(c.LonGrid)
	m.cx = make([]float64, len(lon.Values))
	m.cy = make([]float64, len(lat.Values))
	for i := range lon.Values {
		x, y := lon.Values[i], lat.Values[i]
		if proj != nil {
			var err error
			if x, y, err = proj(x, y); err != nil {
				x, y = math.NaN(), math.NaN()
			}
		}
		m.cx[i], m.cy[i] = x, y
	}
	return m
}

// corners returns the (r+1)×(c+1) cell-edge grid for cell centers g.
func corners(g domain.Grid) domain.Grid {
	r, c := g.Rows, g.Cols
	// pad by one cell on each side using linear extrapolation
	pad := domain.NewGrid(r+2, c+2)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			pad.Set(i+1, j+1, g.At(i, j))
		}
	}
	for i := 1; i <= r; i++ {
		pad.Set(i, 0, extrapolate(pad, i, 1, 0, 1, c))
		pad.Set(i, c+1, extrapolate(pad, i, c, 0, -1, c))
	}
	for j := 0; j <= c+1; j++ {
		pad.Set(0, j, extrapolate(pad, 1, j, 1, 0, r))
		pad.Set(r+1, j, extrapolate(pad, r, j, -1, 0, r))
	}
	out := domain.NewGrid(r+1, c+1)
	for i := 0; i <= r; i++ {
		for j := 0; j <= c; j++ {
			out.Set(i, j, (pad.At(i, j)+pad.At(i+1, j)+pad.At(i, j+1)+pad.At(i+1, j+1))/4)
		}
	}
	return out
}

// extrapolate steps one cell outward from (i,j), away from the neighbour at
// (i+di, j+dj). With a single cell along that axis there is no spacing to
// copy, so a fixed half-width of 0.005 is used.
func extrapolate(g domain.Grid, i, j, di, dj, n int) float64 {
	v := g.At(i, j)
	if n < 2 {
		if di+dj > 0 {
			return v - 0.01
		}
		return v + 0.01
	}
	return 2*v - g.At(i+di, j+dj)
}

func (m *Mesh) corner(i, j int) (float64, float64) {
	k := i*(m.cols+1) + j
	return m.cx[k], m.cy[k]
}

// Plot implements plot.Plotter.
func (m *Mesh) Plot(c draw.Canvas, plt *plot.Plot) {
	if m.rows == 0 || m.cols == 0 {
		return
	}
	trX, trY := plt.Transforms(&c)
	quad := make([]vg.Point, 4)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			clr, ok := m.Scale.Color(m.values[i*m.cols+j])
			if !ok {
				continue
			}
			valid := true
			for k, ij := range [4][2]int{{i, j}, {i, j + 1}, {i + 1, j + 1}, {i + 1, j}} {
				x, y := m.corner(ij[0], ij[1])
				if math.IsNaN(x) || math.IsNaN(y) {
					valid = false
					break
				}
				quad[k] = vg.Point{X: trX(x), Y: trY(y)}
			}
			if !valid {
				continue
			}
			c.FillPolygon(m.withAlpha(clr), c.ClipPolygonXY(quad))
		}
	}
}

func (m *Mesh) withAlpha(c color.NRGBA) color.Color {
	if m.Alpha > 0 && m.Alpha < 1 {
		c.A = uint8(math.Round(float64(c.A) * m.Alpha))
	}
	return c
}

// DataRange implements plot.DataRanger over the cell edges.
func (m *Mesh) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin, ymin = math.Inf(1), math.Inf(1)
	xmax, ymax = math.Inf(-1), math.Inf(-1)
	for k := range m.cx {
		x, y := m.cx[k], m.cy[k]
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		xmin, xmax = math.Min(xmin, x), math.Max(xmax, x)
		ymin, ymax = math.Min(ymin, y), math.Max(ymax, y)
	}
	if math.IsInf(xmin, 1) {
		return 0, 0, 0, 0
	}
	return xmin, xmax, ymin, ymax
}
