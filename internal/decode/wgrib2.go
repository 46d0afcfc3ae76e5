package decode

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

// wgrib2 marks undefined grid points with this value in -bin output.
const wgrib2Undefined = 9.999e20

// Wgrib2 decodes through the wgrib2 program. Values and per-cell
// coordinates are extracted with -no_header -bin, which writes native
// float32 in West-to-East, South-to-North order.
type Wgrib2 struct {
	// Command used for launching wgrib2, looked up in the system path.
	Command string
	// Match, when set, keeps only records whose inventory line matches.
	Match *regexp.Regexp

	run    RunFunc
	logger *slog.Logger
}

// NewWgrib2 creates a wgrib2 decoder. match may be nil.
func NewWgrib2(command string, match *regexp.Regexp, logger *slog.Logger) *Wgrib2 {
	return &Wgrib2{Command: command, Match: match, run: ExecRun, logger: logger}
}

func (w *Wgrib2) Name() string {
	if w.Match != nil {
		return fmt.Sprintf("wgrib2[%s]", w.Match)
	}
	return "wgrib2"
}

func (w *Wgrib2) Available() error { return lookPath(w.Command) }

// Record is one line of the wgrib2 inventory.
type Record struct {
	ID        string
	Name      string
	Level     string
	NX, NY    int
	ValidTime time.Time
	Line      string
}

// Decode extracts every (matching) record. Records that share a parameter
// name are stacked along a leading dimension; latitude and longitude come
// from the first record's grid.
func (w *Wgrib2) Decode(ctx context.Context, path string) (*domain.Dataset, error) {
	inv, err := w.inventory(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(inv) == 0 {
		return nil, errors.Errorf("no records match %s", w.Match)
	}

	tmp, err := os.MkdirTemp("", "wgrib2-")
	if err != nil {
		return nil, errors.Wrap(err, "create wgrib2 work dir")
	}
	defer os.RemoveAll(tmp)

	first := inv[0]
	ds := &domain.Dataset{ValidTime: first.ValidTime}
	stacks := map[string]*domain.Variable{}
	var order []string

	for i, rec := range inv {
		if rec.NX != first.NX || rec.NY != first.NY {
			w.logger.Debug("skipping record on a different grid", "record", rec.ID, "nx", rec.NX, "ny", rec.NY)
			continue
		}
		vals, lat, lon, err := w.extract(ctx, path, tmp, rec, i == 0)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			ds.Variables = append(ds.Variables,
				domain.Variable{Name: "latitude", Dims: []int{rec.NY, rec.NX}, Data: lat},
				domain.Variable{Name: "longitude", Dims: []int{rec.NY, rec.NX}, Data: lon},
			)
		}
		v, ok := stacks[rec.Name]
		if !ok {
			v = &domain.Variable{Name: rec.Name, Dims: []int{0, rec.NY, rec.NX}}
			stacks[rec.Name] = v
			order = append(order, rec.Name)
		}
		v.Dims[0]++
		v.Data = append(v.Data, vals...)
	}

	for _, name := range order {
		v := stacks[name]
		if v.Dims[0] == 1 {
			v.Dims = v.Dims[1:]
		}
		ds.Variables = append(ds.Variables, *v)
	}
	return ds, nil
}

func (w *Wgrib2) inventory(ctx context.Context, path string) ([]Record, error) {
	var inv []Record
	err := w.run(ctx, w.Command, []string{path, "-var", "-lev", "-nxny", "-VT"}, func(r io.Reader) error {
		var err error
		inv, err = ParseInventory(r)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "wgrib2 inventory")
	}
	if w.Match == nil {
		return inv, nil
	}
	kept := inv[:0]
	for _, rec := range inv {
		if w.Match.MatchString(rec.Line) {
			kept = append(kept, rec)
		}
	}
	return kept, nil
}

func (w *Wgrib2) extract(ctx context.Context, path, dir string, rec Record, coords bool) (vals, lat, lon []float64, err error) {
	valsFn := filepath.Join(dir, "values.bin")
	latFn := filepath.Join(dir, "lat.bin")
	lonFn := filepath.Join(dir, "lon.bin")

	args := []string{path, "-d", rec.ID, "-no_header", "-bin", valsFn}
	if coords {
		args = append(args, "-rpn", "rcl_lat", "-bin", latFn, "-rpn", "rcl_lon", "-bin", lonFn)
	}
	if err := w.run(ctx, w.Command, args, discard); err != nil {
		return nil, nil, nil, errors.Wrapf(err, "wgrib2 extract record %s", rec.ID)
	}

	n := rec.NX * rec.NY
	if vals, err = readFloat32s(valsFn, n); err != nil {
		return nil, nil, nil, err
	}
	if !coords {
		return vals, nil, nil, nil
	}
	if lat, err = readFloat32s(latFn, n); err != nil {
		return nil, nil, nil, err
	}
	if lon, err = readFloat32s(lonFn, n); err != nil {
		return nil, nil, nil, err
	}
	return vals, lat, lon, nil
}

// readFloat32s reads a headerless native-endian float32 file of exactly n values.
func readFloat32s(fn string, n int) ([]float64, error) {
	raw, err := os.ReadFile(fn)
	if err != nil {
		return nil, errors.Wrap(err, "read wgrib2 output")
	}
	if len(raw) != 4*n {
		return nil, errors.Errorf("%s: got %d bytes, want %d for %d points", filepath.Base(fn), len(raw), 4*n, n)
	}
	out := make([]float64, n)
	for i := range out {
		v := float64(math.Float32frombits(binary.NativeEndian.Uint32(raw[4*i:])))
		if v >= wgrib2Undefined*0.999 {
			v = math.NaN()
		}
		out[i] = v
	}
	return out, nil
}

// ParseInventory parses the output of "wgrib2 FILE -var -lev -nxny -VT":
//
//	1:0:REFC:entire atmosphere:(1799 x 1059):vt=20250501120000
//
// Parameters without a wgrib2 name ("var discipline=209 ...") are named
// "unknown".
func ParseInventory(r io.Reader) ([]Record, error) {
	var inv []Record
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 5 {
			return nil, errors.Errorf("inventory record has too few fields: %q", line)
		}
		rec := Record{ID: fields[0], Name: paramName(fields[2]), Level: fields[3], Line: line}
		if _, err := fmt.Sscanf(fields[4], "(%d x %d)", &rec.NX, &rec.NY); err != nil {
			return nil, errors.Wrapf(err, "parse grid size %q", fields[4])
		}
		for _, f := range fields[5:] {
			if t, ok := parseValidTime(f); ok {
				rec.ValidTime = t
			}
		}
		inv = append(inv, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return inv, nil
}

func paramName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "var ") || strings.HasPrefix(s, "var_") {
		return "unknown"
	}
	return s
}

func parseValidTime(field string) (time.Time, bool) {
	v, ok := strings.CutPrefix(field, "vt=")
	if !ok {
		v, ok = strings.CutPrefix(field, "VT=")
	}
	if !ok {
		return time.Time{}, false
	}
	var layout string
	switch len(v) {
	case 14:
		layout = "20060102150405"
	case 12:
		layout = "200601021504"
	case 10:
		layout = "2006010215"
	default:
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(layout, v, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
