package domain

import (
	"fmt"
	"math"
)

// Box is an explicit latitude/longitude window. Bounds are inclusive.
type Box struct {
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
	LonMin float64 `json:"lon_min"`
	LonMax float64 `json:"lon_max"`
}

func (b Box) String() string {
	return fmt.Sprintf("lat %.2f–%.2f, lon %.2f–%.2f", b.LatMin, b.LatMax, b.LonMin, b.LonMax)
}

// Radius is a square window of ±Degrees around an event point given in
// signed longitude.
type Radius struct {
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
	Degrees   float64 `json:"radius_deg"`
}

// Box returns the signed-longitude window covered by the radius.
func (r Radius) Box() Box {
	return Box{
		LatMin: r.CenterLat - r.Degrees,
		LatMax: r.CenterLat + r.Degrees,
		LonMin: r.CenterLon - r.Degrees,
		LonMax: r.CenterLon + r.Degrees,
	}
}

// GridBox returns the window expressed in the given longitude convention.
func (r Radius) GridBox(conv LonConvention) Box {
	center := r.CenterLon
	if conv == Lon360 {
		center = NormalizeLon360(center)
	}
	return Box{
		LatMin: r.CenterLat - r.Degrees,
		LatMax: r.CenterLat + r.Degrees,
		LonMin: center - r.Degrees,
		LonMax: center + r.Degrees,
	}
}

func within(v, lo, hi float64) bool { return v >= lo && v <= hi }

func maskIndices(ref []float64, lo, hi float64) []int {
	var idx []int
	for i, v := range ref {
		if within(v, lo, hi) {
			idx = append(idx, i)
		}
	}
	return idx
}

// CropBox selects the cells inside box. With 1-D coordinates the row and
// column masks are applied independently. With 2-D coordinates a cell is kept
// only when both its latitude and longitude fall inside the box; the result is
// the smallest window holding every kept cell, with the other cells in that
// window set to NaN. The box must use the same longitude convention as f.
func CropBox(f Field, box Box) Field {
	if !f.Coords.Is2D() {
		rows := maskIndices(f.Coords.Lats, box.LatMin, box.LatMax)
		cols := maskIndices(f.Coords.Lons, box.LonMin, box.LonMax)
		return selectRect(f, rows, cols)
	}
	return cropCombined(f, box)
}

// CropRadius selects the rows and columns within ±Degrees of the center,
// using the first column of latitudes and the first row of longitudes as
// reference vectors. The center longitude is converted into the grid's
// convention before selection and the result carries signed longitudes.
func CropRadius(f Field, r Radius) Field {
	box := r.GridBox(f.Coords.Convention())
	rows := maskIndices(f.Coords.RowLats(), box.LatMin, box.LatMax)
	cols := maskIndices(f.Coords.ColLons(), box.LonMin, box.LonMax)
	out := selectRect(f, rows, cols)
	out.Coords = out.Coords.Signed()
	return out
}

// selectRect keeps the outer product of rows and cols.
func selectRect(f Field, rows, cols []int) Field {
	out := Field{ValidTime: f.ValidTime}
	out.Values = take(f.Values, rows, cols)
	if f.Coords.Is2D() {
		out.Coords.LatGrid = take(f.Coords.LatGrid, rows, cols)
		out.Coords.LonGrid = take(f.Coords.LonGrid, rows, cols)
		return out
	}
	out.Coords.Lats = pick(f.Coords.Lats, rows)
	out.Coords.Lons = pick(f.Coords.Lons, cols)
	return out
}

func take(g Grid, rows, cols []int) Grid {
	out := NewGrid(len(rows), len(cols))
	for i, r := range rows {
		for j, c := range cols {
			out.Set(i, j, g.At(r, c))
		}
	}
	return out
}

func pick(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, k := range idx {
		out[i] = v[k]
	}
	return out
}

func cropCombined(f Field, box Box) Field {
	lat, lon := f.Coords.LatGrid, f.Coords.LonGrid
	keep := make([]bool, len(f.Values.Values))
	r0, r1, c0, c1 := math.MaxInt, -1, math.MaxInt, -1
	for i := 0; i < f.Values.Rows; i++ {
		for j := 0; j < f.Values.Cols; j++ {
			if !within(lat.At(i, j), box.LatMin, box.LatMax) || !within(lon.At(i, j), box.LonMin, box.LonMax) {
				continue
			}
			keep[i*f.Values.Cols+j] = true
			r0, r1 = min(r0, i), max(r1, i)
			c0, c1 = min(c0, j), max(c1, j)
		}
	}
	if r1 < 0 {
		return selectRect(f, nil, nil)
	}
	rows := seq(r0, r1)
	cols := seq(c0, c1)
	out := selectRect(f, rows, cols)
	for i, r := range rows {
		for j, c := range cols {
			if !keep[r*f.Values.Cols+c] {
				out.Values.Set(i, j, math.NaN())
			}
		}
	}
	return out
}

func seq(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}
