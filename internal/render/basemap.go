package render

import (
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

// Layer is one Natural Earth shapefile and how to paint it.
type Layer struct {
	// File is the shapefile name inside the basemap directory.
	File string
	// Fill paints polygon interiors. Nil leaves them unfilled.
	Fill color.Color
	// Line strokes polygon rings and lines. A nil color draws no outline.
	Line draw.LineStyle
}

func hex(s string) color.Color { return domain.MustHex(s) }

// DarkLayers is the MRMS map basemap, bottom to top. Ocean is painted
// before land so the ocean polygon never needs its continent holes.
func DarkLayers() []Layer {
	dashed := []vg.Length{vg.Points(3), vg.Points(2)}
	return []Layer{
		{File: "ne_50m_ocean.shp", Fill: hex("#0d1117")},
		{File: "ne_50m_land.shp", Fill: hex("#1a1a2e")},
		{File: "ne_50m_admin_1_states_provinces_lines.shp", Line: draw.LineStyle{Color: hex("#555577"), Width: vg.Points(0.6)}},
		{File: "ne_50m_coastline.shp", Line: draw.LineStyle{Color: hex("#8888aa"), Width: vg.Points(0.8)}},
		{File: "ne_50m_admin_0_boundary_lines_land.shp", Line: draw.LineStyle{Color: hex("#8888aa"), Width: vg.Points(0.5), Dashes: dashed}},
		{File: "ne_50m_lakes.shp", Fill: hex("#0d1117"), Line: draw.LineStyle{Color: hex("#555577"), Width: vg.Points(0.4)}},
	}
}

// Basemap loads vector layers from a directory of shapefiles in lon/lat.
// Missing files are skipped with a warning.
type Basemap struct {
	Dir    string
	Layers []Layer
	Logger *slog.Logger
}

// LayerPlot is a basemap layer clipped to a window and projected.
type LayerPlot struct {
	Layer
	// outer rings only; holes are painted by the layers above.
	polygons [][]geom.Point
	lines    [][]geom.Point
}

// Load reads every layer overlapping window (lon/lat degrees) and projects
// it with t. A missing directory yields no layers.
func (b Basemap) Load(window domain.Box, t proj.Transformer) []*LayerPlot {
	logger := b.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if b.Dir == "" {
		logger.Warn("basemap directory not set, drawing map without base layers")
		return nil
	}
	if _, err := os.Stat(b.Dir); err != nil {
		logger.Warn("basemap directory unavailable", "dir", b.Dir, "error", err)
		return nil
	}

	var out []*LayerPlot
	for _, l := range b.Layers {
		lp, err := loadLayer(filepath.Join(b.Dir, l.File), l, window, t)
		if err != nil {
			logger.Warn("skipping basemap layer", "layer", l.File, "error", err)
			continue
		}
		logger.Debug("basemap layer loaded", "layer", l.File, "polygons", len(lp.polygons), "lines", len(lp.lines))
		out = append(out, lp)
	}
	return out
}

func loadLayer(path string, l Layer, window domain.Box, t proj.Transformer) (*LayerPlot, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.WithStack(err)
	}
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open shapefile %s", path)
	}
	defer d.Close()

	clip := geom.Polygon{{
		{X: window.LonMin, Y: window.LatMin},
		{X: window.LonMax, Y: window.LatMin},
		{X: window.LonMax, Y: window.LatMax},
		{X: window.LonMin, Y: window.LatMax},
	}}
	bounds := clip.Bounds()

	lp := &LayerPlot{Layer: l}
	for {
		g, _, more := d.DecodeRowFields()
		if !more {
			break
		}
		if g == nil || !g.Bounds().Overlaps(bounds) {
			continue
		}
		if err := lp.add(g, clip, t); err != nil {
			return nil, errors.Wrapf(err, "project %s", filepath.Base(path))
		}
	}
	if err := d.Error(); err != nil {
		return nil, errors.Wrapf(err, "read shapefile %s", path)
	}
	return lp, nil
}

func (lp *LayerPlot) add(g geom.Geom, clip geom.Polygon, t proj.Transformer) error {
	switch g := g.(type) {
	case geom.Polygonal:
		for _, pg := range g.Intersection(clip).Polygons() {
			for i, ring := range pg {
				pts, err := project(ring, t)
				if err != nil {
					return err
				}
				if i == 0 && lp.Fill != nil {
					lp.polygons = append(lp.polygons, pts)
				}
				if lp.Line.Color != nil {
					lp.lines = append(lp.lines, closeRing(pts))
				}
			}
		}
	case geom.Linear:
		var parts []geom.LineString
		switch c := g.Clip(clip).(type) {
		case geom.LineString:
			parts = []geom.LineString{c}
		case geom.MultiLineString:
			parts = c
		}
		for _, ls := range parts {
			if len(ls) < 2 {
				continue
			}
			pts, err := project(ls, t)
			if err != nil {
				return err
			}
			lp.lines = append(lp.lines, pts)
		}
	}
	return nil
}

func project[P ~[]geom.Point](pts P, t proj.Transformer) ([]geom.Point, error) {
	out := make([]geom.Point, 0, len(pts))
	for _, p := range pts {
		x, y, err := t(p.X, p.Y)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			continue
		}
		out = append(out, geom.Point{X: x, Y: y})
	}
	return out, nil
}

func closeRing(pts []geom.Point) []geom.Point {
	if len(pts) > 1 && pts[0] != pts[len(pts)-1] {
		return append(pts[:len(pts):len(pts)], pts[0])
	}
	return pts
}

// Plot implements plot.Plotter.
func (lp *LayerPlot) Plot(c draw.Canvas, p *plot.Plot) {
	trX, trY := p.Transforms(&c)
	toVG := func(pts []geom.Point) []vg.Point {
		out := make([]vg.Point, len(pts))
		for i, pt := range pts {
			out[i] = vg.Point{X: trX(pt.X), Y: trY(pt.Y)}
		}
		return out
	}
	for _, ring := range lp.polygons {
		if len(ring) >= 3 {
			c.FillPolygon(lp.Fill, c.ClipPolygonXY(toVG(ring)))
		}
	}
	if lp.Line.Color == nil {
		return
	}
	for _, line := range lp.lines {
		c.StrokeLines(lp.Line, c.ClipLinesXY(toVG(line))...)
	}
}
