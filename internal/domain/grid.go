package domain

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// MissingThreshold is the cutoff for the MRMS missing-data sentinel (−999).
const MissingThreshold = -990.0

// Grid is a row-major 2-D array of reflectivity values. A zero-size grid is
// valid and represents an empty selection.
type Grid struct {
	Rows   int
	Cols   int
	Values []float64
}

// NewGrid allocates a rows×cols grid filled with zeros.
func NewGrid(rows, cols int) Grid {
	return Grid{Rows: rows, Cols: cols, Values: make([]float64, rows*cols)}
}

// At returns the value at row i, column j.
func (g Grid) At(i, j int) float64 { return g.Values[i*g.Cols+j] }

// Set stores v at row i, column j.
func (g Grid) Set(i, j int, v float64) { g.Values[i*g.Cols+j] = v }

// Empty reports whether the grid has no cells.
func (g Grid) Empty() bool { return g.Rows == 0 || g.Cols == 0 }

// Shape returns (rows, cols).
func (g Grid) Shape() (int, int) { return g.Rows, g.Cols }

// Range returns the minimum and maximum finite values. ok is false when the
// grid holds no finite value.
func (g Grid) Range() (lo, hi float64, ok bool) {
	finite := make([]float64, 0, len(g.Values))
	for _, v := range g.Values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return math.NaN(), math.NaN(), false
	}
	return floats.Min(finite), floats.Max(finite), true
}

// MaskMissing replaces every value at or below MissingThreshold with NaN in place.
func MaskMissing(g Grid) Grid {
	for i, v := range g.Values {
		if v <= MissingThreshold {
			g.Values[i] = math.NaN()
		}
	}
	return g
}

// Coordinates locate every grid cell. Exactly one form is populated:
// 1-D Lats (len Rows) and Lons (len Cols) for rectilinear grids, or 2-D
// LatGrid/LonGrid co-indexed with the data.
type Coordinates struct {
	Lats []float64
	Lons []float64

	LatGrid Grid
	LonGrid Grid
}

// Is2D reports whether the coordinates are full 2-D grids.
func (c Coordinates) Is2D() bool { return c.LatGrid.Values != nil }

// Mesh expands 1-D coordinates into 2-D grids. 2-D coordinates are returned unchanged.
func (c Coordinates) Mesh() Coordinates {
	if c.Is2D() {
		return c
	}
	rows, cols := len(c.Lats), len(c.Lons)
	lat := NewGrid(rows, cols)
	lon := NewGrid(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			lat.Set(i, j, c.Lats[i])
			lon.Set(i, j, c.Lons[j])
		}
	}
	return Coordinates{LatGrid: lat, LonGrid: lon}
}

// RowLats returns the latitude reference vector used for row selection: the
// 1-D latitudes or the first column of the 2-D grid.
func (c Coordinates) RowLats() []float64 {
	if !c.Is2D() {
		return c.Lats
	}
	out := make([]float64, c.LatGrid.Rows)
	for i := range out {
		out[i] = c.LatGrid.At(i, 0)
	}
	return out
}

// ColLons returns the longitude reference vector used for column selection:
// the 1-D longitudes or the first row of the 2-D grid.
func (c Coordinates) ColLons() []float64 {
	if !c.Is2D() {
		return c.Lons
	}
	out := make([]float64, c.LonGrid.Cols)
	copy(out, c.LonGrid.Values[:c.LonGrid.Cols])
	return out
}

// allLons returns every longitude value regardless of form.
func (c Coordinates) allLons() []float64 {
	if c.Is2D() {
		return c.LonGrid.Values
	}
	return c.Lons
}

// LonConvention identifies how a grid expresses longitude.
type LonConvention int

const (
	// LonSigned is the −180..180 convention.
	LonSigned LonConvention = iota
	// Lon360 is the 0..360 convention used by MRMS.
	Lon360
)

func (l LonConvention) String() string {
	if l == Lon360 {
		return "0-360"
	}
	return "-180-180"
}

// Convention detects the longitude convention of the coordinates.
func (c Coordinates) Convention() LonConvention {
	for _, lon := range c.allLons() {
		if lon > 180 {
			return Lon360
		}
	}
	return LonSigned
}

// Signed returns a copy of the coordinates with every longitude in −180..180.
func (c Coordinates) Signed() Coordinates {
	out := Coordinates{Lats: c.Lats, LatGrid: c.LatGrid}
	if c.Is2D() {
		out.LonGrid = Grid{Rows: c.LonGrid.Rows, Cols: c.LonGrid.Cols, Values: signedAll(c.LonGrid.Values)}
		return out
	}
	out.Lons = signedAll(c.Lons)
	return out
}

func signedAll(lons []float64) []float64 {
	out := make([]float64, len(lons))
	for i, lon := range lons {
		out[i] = SignedLon(lon)
	}
	return out
}

// NormalizeLon360 maps any longitude into [0, 360).
func NormalizeLon360(lon float64) float64 {
	return math.Mod(math.Mod(lon, 360)+360, 360)
}

// SignedLon maps a 0..360 longitude into −180..180.
func SignedLon(lon float64) float64 {
	if lon > 180 {
		return lon - 360
	}
	return lon
}

// Field is a reflectivity grid with its coordinates and validity time.
type Field struct {
	Values    Grid
	Coords    Coordinates
	ValidTime time.Time // zero when the source carries no time
}
