package decode

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

// Gribber decodes the first submessage with the gribber tool from grib-rs
// (https://github.com/noritada/grib-rs). Its output is a text table
// "Latitude Longitude Value" in scan order, from which a rectilinear grid is
// rebuilt. The parameter name is not reported, so the variable is "unknown".
type Gribber struct {
	// Command used for launching gribber, looked up in the system path.
	Command string
	// Submessage selects the message to decode, "0.0" for the first.
	Submessage string

	run    RunFunc
	logger *slog.Logger
}

// NewGribber creates a gribber decoder for the first submessage.
func NewGribber(command string, logger *slog.Logger) *Gribber {
	return &Gribber{Command: command, Submessage: "0.0", run: ExecRun, logger: logger}
}

func (g *Gribber) Name() string { return "gribber" }

func (g *Gribber) Available() error { return lookPath(g.Command) }

func (g *Gribber) Decode(ctx context.Context, path string) (*domain.Dataset, error) {
	var pts points
	err := g.run(ctx, g.Command, []string{"decode", path, g.Submessage}, func(r io.Reader) error {
		var err error
		pts, err = parseGribberTable(r)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "gribber decode")
	}

	lats, lons, err := pts.axes()
	if err != nil {
		return nil, err
	}
	g.logger.Debug("gribber grid", "rows", len(lats), "cols", len(lons))

	return &domain.Dataset{Variables: []domain.Variable{
		{Name: "latitude", Dims: []int{len(lats)}, Data: lats},
		{Name: "longitude", Dims: []int{len(lons)}, Data: lons},
		{Name: "unknown", Dims: []int{len(lats), len(lons)}, Data: pts.val},
	}}, nil
}

type points struct {
	lat, lon, val []float64
}

func parseGribberTable(r io.Reader) (points, error) {
	var pts points
	sc := bufio.NewScanner(r)
	var i int
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if i++; i == 1 {
			for fie, fne := range []string{"Latitude", "Longitude", "Value"} {
				if fie >= len(f) || f[fie] != fne {
					return pts, errors.Errorf("expected field %d:%q, got %q", fie, fne, f)
				}
			}
			continue
		}
		if len(f) < 3 {
			return pts, errors.Errorf("line %d: expected 3 fields, got %q", i, f)
		}
		lat, err := strconv.ParseFloat(f[0], 64)
		if err != nil {
			return pts, errors.Wrapf(err, "parse latitude %q", f[0])
		}
		lon, err := strconv.ParseFloat(f[1], 64)
		if err != nil {
			return pts, errors.Wrapf(err, "parse longitude %q", f[1])
		}
		val, err := strconv.ParseFloat(f[2], 64)
		if err != nil {
			return pts, errors.Wrapf(err, "parse value %q", f[2])
		}
		pts.lat = append(pts.lat, lat)
		pts.lon = append(pts.lon, lon)
		pts.val = append(pts.val, val)
	}
	if err := sc.Err(); err != nil {
		return pts, err
	}
	if len(pts.val) == 0 {
		return pts, errors.New("no data returned")
	}
	return pts, nil
}

// axes recovers the row latitudes and column longitudes of a row-major
// rectilinear scan. Longitudes repeat every row; latitudes change per row.
func (p points) axes() (lats, lons []float64, err error) {
	cols := 1
	for cols < len(p.lat) && p.lat[cols] == p.lat[0] {
		cols++
	}
	if len(p.val)%cols != 0 {
		return nil, nil, errors.Errorf("%d points do not form rows of %d", len(p.val), cols)
	}
	rows := len(p.val) / cols
	lats = make([]float64, rows)
	lons = append([]float64(nil), p.lon[:cols]...)
	for i := 0; i < rows; i++ {
		lats[i] = p.lat[i*cols]
		for j := 0; j < cols; j++ {
			k := i*cols + j
			if p.lat[k] != lats[i] || p.lon[k] != lons[j] {
				return nil, nil, errors.Errorf("point %d (%g, %g) is not on a regular lat/lon grid", k, p.lat[k], p.lon[k])
			}
		}
	}
	return lats, lons, nil
}
