package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Variable is a named n-dimensional array with row-major Data.
type Variable struct {
	Name string
	Dims []int
	Data []float64
}

// Collapse2D reduces the variable to its trailing two dimensions. Each leading
// axis is indexed at 0 when it has length 1 and at its last index otherwise.
func (v Variable) Collapse2D() (Grid, error) {
	if len(v.Dims) < 2 {
		return Grid{}, errors.Errorf("variable %q has %d dimension(s), need at least 2", v.Name, len(v.Dims))
	}
	size := 1
	for _, d := range v.Dims {
		if d < 0 {
			return Grid{}, errors.Errorf("variable %q has negative dimension in %v", v.Name, v.Dims)
		}
		size *= d
	}
	if len(v.Data) != size {
		return Grid{}, errors.Errorf("variable %q: %d values do not fill %v", v.Name, len(v.Data), v.Dims)
	}
	dims := v.Dims
	data := v.Data
	for len(dims) > 2 {
		stride := 1
		for _, d := range dims[1:] {
			stride *= d
		}
		idx := 0
		if dims[0] > 1 {
			idx = dims[0] - 1
		}
		data = data[idx*stride : (idx+1)*stride]
		dims = dims[1:]
	}
	out := make([]float64, len(data))
	copy(out, data)
	return Grid{Rows: dims[0], Cols: dims[1], Values: out}, nil
}

// Dataset is an ordered set of decoded variables.
type Dataset struct {
	Variables []Variable
	ValidTime time.Time
}

// Names lists the variable names in decode order.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.Variables))
	for i, v := range d.Variables {
		names[i] = v.Name
	}
	return names
}

// Lookup returns the variable with the given name.
func (d *Dataset) Lookup(name string) (Variable, bool) {
	for _, v := range d.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// ReflectivityNames is the priority order for locating the data variable.
var ReflectivityNames = []string{"unknown", "refc", "REFC", "reflectivity", "dBZ", "Reflectivity"}

// CoordinateNames are never chosen as the data variable.
var CoordinateNames = []string{"latitude", "longitude", "lat", "lon", "x", "y", "time"}

// VariableNotFoundError reports that a dataset has no usable data variable.
type VariableNotFoundError struct {
	Available []string
}

func (e *VariableNotFoundError) Error() string {
	return fmt.Sprintf("no data variable found; variables: [%s]", strings.Join(e.Available, ", "))
}

// FirstMatching returns the first candidate present in keys.
func FirstMatching(keys, candidates []string) (string, bool) {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	for _, c := range candidates {
		if _, ok := set[c]; ok {
			return c, true
		}
	}
	return "", false
}

// ResolveDataVariable picks the reflectivity variable: a known name first,
// then the first non-coordinate variable.
func (d *Dataset) ResolveDataVariable() (Variable, error) {
	names := d.Names()
	if name, ok := FirstMatching(names, ReflectivityNames); ok {
		v, _ := d.Lookup(name)
		return v, nil
	}
	for _, v := range d.Variables {
		if !slices.Contains(CoordinateNames, v.Name) {
			return v, nil
		}
	}
	return Variable{}, &VariableNotFoundError{Available: names}
}

// Placeholder coverage used when a dataset carries no coordinates.
const (
	PlaceholderLatMin = 20.0
	PlaceholderLatMax = 55.0
	PlaceholderLonMin = -130.0
	PlaceholderLonMax = -60.0
)

// ResolveCoordinates finds latitude/longitude (or lat/lon) variables shaped
// for a rows×cols grid. When none exist it returns an evenly spaced CONUS
// placeholder and degraded=true.
func (d *Dataset) ResolveCoordinates(rows, cols int) (coords Coordinates, degraded bool, err error) {
	for _, pair := range [][2]string{{"latitude", "longitude"}, {"lat", "lon"}} {
		lat, okLat := d.Lookup(pair[0])
		lon, okLon := d.Lookup(pair[1])
		if !okLat || !okLon {
			continue
		}
		coords, err = coordinatesFrom(lat, lon, rows, cols)
		return coords, false, err
	}
	return PlaceholderCoordinates(rows, cols), true, nil
}

// PlaceholderCoordinates spans the fixed CONUS box with rows×cols points.
func PlaceholderCoordinates(rows, cols int) Coordinates {
	return Coordinates{
		Lats: span(PlaceholderLatMin, PlaceholderLatMax, rows),
		Lons: span(PlaceholderLonMin, PlaceholderLonMax, cols),
	}
}

func span(lo, hi float64, n int) []float64 {
	switch n {
	case 0:
		return []float64{}
	case 1:
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

func coordinatesFrom(lat, lon Variable, rows, cols int) (Coordinates, error) {
	switch {
	case len(lat.Dims) == 1 && len(lon.Dims) == 1:
		if lat.Dims[0] != rows || lon.Dims[0] != cols {
			return Coordinates{}, errors.Errorf("coordinate shape (%d, %d) does not match data %dx%d", lat.Dims[0], lon.Dims[0], rows, cols)
		}
		return Coordinates{Lats: lat.Data, Lons: lon.Data}, nil
	case len(lat.Dims) >= 2 && len(lon.Dims) >= 2:
		latGrid, err := lat.Collapse2D()
		if err != nil {
			return Coordinates{}, err
		}
		lonGrid, err := lon.Collapse2D()
		if err != nil {
			return Coordinates{}, err
		}
		if latGrid.Rows != rows || latGrid.Cols != cols || lonGrid.Rows != rows || lonGrid.Cols != cols {
			return Coordinates{}, errors.Errorf("coordinate grids do not match data %dx%d", rows, cols)
		}
		return Coordinates{LatGrid: latGrid, LonGrid: lonGrid}, nil
	default:
		return Coordinates{}, errors.Errorf("unsupported coordinate ranks %d and %d", len(lat.Dims), len(lon.Dims))
	}
}
