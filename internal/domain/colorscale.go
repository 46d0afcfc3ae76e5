package domain

import (
	"image/color"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ColorScale is a discrete reflectivity palette. Colors[i] covers
// [Bounds[i], Bounds[i+1]).
type ColorScale struct {
	Name   string
	Bounds []float64
	Colors []color.NRGBA
}

// GenericScale is the palette for the generic GRIB renderer.
func GenericScale() ColorScale {
	return mustScale("nexrad", []string{
		"#00FFFF", "#00BFFF", "#0000FF", "#00FF00",
		"#00C800", "#009600", "#FFFF00", "#FFD700",
		"#FFA500", "#FF4500", "#FF0000", "#C80000",
		"#A00000", "#FF00FF", "#9932CC", "#FFFFFF",
	}, []float64{-30, -20, -10, 0, 10, 20, 25, 30, 35, 40, 45, 50, 55, 60, 65, 70, 80})
}

// MRMSScale is the NWS reflectivity palette used on MRMS maps.
func MRMSScale() ColorScale {
	return mustScale("mrms", []string{
		"#646464", "#04e9e7", "#019ff4", "#0300f4",
		"#02fd02", "#01c501", "#008e00", "#fdf802",
		"#e5bc00", "#fd9500", "#fd0000", "#d40000",
		"#bc0000", "#f800fd", "#9854c6", "#fdfdfd",
	}, []float64{-5, 0, 5, 10, 15, 20, 25, 30, 35, 40, 45, 50, 55, 60, 65, 70, 80})
}

// NewColorScale builds a scale from hex colors and bin edges.
func NewColorScale(name string, hexColors []string, bounds []float64) (ColorScale, error) {
	colors := make([]color.NRGBA, len(hexColors))
	for i, h := range hexColors {
		c, err := ParseHexColor(h)
		if err != nil {
			return ColorScale{}, err
		}
		colors[i] = c
	}
	s := ColorScale{Name: name, Bounds: bounds, Colors: colors}
	if err := s.Validate(); err != nil {
		return ColorScale{}, err
	}
	return s, nil
}

func mustScale(name string, hexColors []string, bounds []float64) ColorScale {
	s, err := NewColorScale(name, hexColors, bounds)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks that there is one color per bin and the bounds strictly increase.
func (s ColorScale) Validate() error {
	if len(s.Bounds) < 2 {
		return errors.Errorf("color scale %s: need at least 2 bounds, got %d", s.Name, len(s.Bounds))
	}
	if len(s.Colors) != len(s.Bounds)-1 {
		return errors.Errorf("color scale %s: %d colors for %d bounds", s.Name, len(s.Colors), len(s.Bounds))
	}
	for i := 1; i < len(s.Bounds); i++ {
		if !(s.Bounds[i] > s.Bounds[i-1]) {
			return errors.Errorf("color scale %s: bounds not strictly increasing at index %d", s.Name, i)
		}
	}
	return nil
}

// Floor is the lowest colored value. Anything below is masked.
func (s ColorScale) Floor() float64 { return s.Bounds[0] }

// Bin returns the bin index for v, or -1 when v is masked.
func (s ColorScale) Bin(v float64) int {
	if math.IsNaN(v) || v < s.Bounds[0] {
		return -1
	}
	// first bound strictly greater than v
	i := sort.Search(len(s.Bounds), func(k int) bool { return s.Bounds[k] > v })
	return min(i-1, len(s.Colors)-1)
}

// Color returns the color for v. ok is false for masked values.
func (s ColorScale) Color(v float64) (c color.NRGBA, ok bool) {
	i := s.Bin(v)
	if i < 0 {
		return color.NRGBA{}, false
	}
	return s.Colors[i], true
}

// Ticks returns every stride-th bound, starting at the first.
func (s ColorScale) Ticks(stride int) []float64 {
	if stride < 1 {
		stride = 1
	}
	var out []float64
	for i := 0; i < len(s.Bounds); i += stride {
		out = append(out, s.Bounds[i])
	}
	return out
}

// ParseHexColor parses "#RRGGBB" or "#RRGGBBAA".
func ParseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 && len(h) != 8 {
		return color.NRGBA{}, errors.Errorf("invalid hex color %q", s)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, errors.Wrapf(err, "invalid hex color %q", s)
	}
	if len(h) == 6 {
		n = n<<8 | 0xff
	}
	return color.NRGBA{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, nil
}

// MustHex parses a hex color and panics on malformed input. Intended for constants.
func MustHex(s string) color.NRGBA {
	c, err := ParseHexColor(s)
	if err != nil {
		panic(err)
	}
	return c
}
