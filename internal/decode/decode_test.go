package decode

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/observability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeWgrib2 answers the inventory call with inv and writes the given
// grids for -bin outputs, tracking which register -rpn recalled.
type fakeWgrib2 struct {
	inv      string
	vals     map[string][]float32 // record id -> values
	lat, lon []float32
	calls    [][]string
}

func (f *fakeWgrib2) run(_ context.Context, _ string, args []string, consume func(io.Reader) error) error {
	f.calls = append(f.calls, args)
	if len(args) > 1 && args[1] == "-var" {
		return consume(strings.NewReader(f.inv))
	}
	var rec string
	reg := "vals"
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-d":
			rec = args[i+1]
		case "-rpn":
			reg = strings.TrimPrefix(args[i+1], "rcl_")
		case "-bin":
			data := map[string][]float32{"vals": f.vals[rec], "lat": f.lat, "lon": f.lon}[reg]
			if err := writeFloat32s(args[i+1], data); err != nil {
				return err
			}
		}
	}
	return consume(strings.NewReader(""))
}

func writeFloat32s(fn string, vals []float32) error {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.NativeEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return os.WriteFile(fn, buf, 0o600)
}

func newFakeWgrib2(f *fakeWgrib2, match *regexp.Regexp) *Wgrib2 {
	w := NewWgrib2("wgrib2", match, discardLogger())
	w.run = f.run
	return w
}

// 2x3 MRMS-like grid in 0-360 longitudes, south-to-north.
func mrmsFake() *fakeWgrib2 {
	return &fakeWgrib2{
		inv: "1:0:var discipline=209 master_table=255 parmcat=3 parm=0:500 m above mean sea level:(3 x 2):vt=20250501120040\n",
		vals: map[string][]float32{
			"1": {-999, 10, 45, 20, -999, 70},
		},
		lat: []float32{37, 37, 37, 38, 38, 38},
		lon: []float32{238, 239, 240, 238, 239, 240},
	}
}

func TestParseInventory(t *testing.T) {
	inv, err := ParseInventory(strings.NewReader(
		"1:0:REFC:entire atmosphere:(1799 x 1059):vt=2025050112\n" +
			"2:1234:var discipline=209 master_table=255 parmcat=3 parm=0:500 m above mean sea level:(7000 x 3500):vt=20250501120040\n",
	))
	require.NoError(t, err)
	require.Len(t, inv, 2)

	assert.Equal(t, "1", inv[0].ID)
	assert.Equal(t, "REFC", inv[0].Name)
	assert.Equal(t, "entire atmosphere", inv[0].Level)
	assert.Equal(t, 1799, inv[0].NX)
	assert.Equal(t, 1059, inv[0].NY)
	assert.Equal(t, time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC), inv[0].ValidTime)

	assert.Equal(t, "unknown", inv[1].Name)
	assert.Equal(t, 7000, inv[1].NX)
	assert.Equal(t, time.Date(2025, 5, 1, 12, 0, 40, 0, time.UTC), inv[1].ValidTime)
}

func TestParseInventory_Malformed(t *testing.T) {
	_, err := ParseInventory(strings.NewReader("1:0:REFC\n"))
	assert.Error(t, err)

	_, err = ParseInventory(strings.NewReader("1:0:REFC:surface:7000x3500\n"))
	assert.Error(t, err)
}

func TestWgrib2_Decode(t *testing.T) {
	f := mrmsFake()
	ds, err := newFakeWgrib2(f, nil).Decode(context.Background(), "mrms.grib2")
	require.NoError(t, err)

	assert.Equal(t, []string{"latitude", "longitude", "unknown"}, ds.Names())
	assert.Equal(t, time.Date(2025, 5, 1, 12, 0, 40, 0, time.UTC), ds.ValidTime)

	v, ok := ds.Lookup("unknown")
	require.True(t, ok)
	assert.Equal(t, []int{2, 3}, v.Dims)
	assert.Equal(t, 45.0, v.Data[2])

	lon, _ := ds.Lookup("longitude")
	assert.Equal(t, []int{2, 3}, lon.Dims)
	assert.Equal(t, 240.0, lon.Data[2])

	// inventory plus one extraction with coordinate recall
	require.Len(t, f.calls, 2)
	assert.Contains(t, strings.Join(f.calls[1], " "), "-d 1 -no_header -bin")
	assert.Contains(t, strings.Join(f.calls[1], " "), "-rpn rcl_lat")
}

func TestWgrib2_Decode_StacksRepeatedNames(t *testing.T) {
	f := &fakeWgrib2{
		inv: "1:0:REFC:entire atmosphere:(2 x 1):vt=2025050112\n" +
			"2:10:REFC:entire atmosphere:(2 x 1):vt=2025050113\n" +
			"3:20:TMP:surface:(2 x 1):vt=2025050112\n",
		vals: map[string][]float32{"1": {1, 2}, "2": {3, 4}, "3": {280, 281}},
		lat:  []float32{40, 40},
		lon:  []float32{-100, -99},
	}
	ds, err := newFakeWgrib2(f, nil).Decode(context.Background(), "refc.grib2")
	require.NoError(t, err)

	refc, ok := ds.Lookup("REFC")
	require.True(t, ok)
	assert.Equal(t, []int{2, 1, 2}, refc.Dims)
	g, err := refc.Collapse2D()
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, g.Values)

	// coordinates are only recalled for the first record
	for _, call := range f.calls[2:] {
		assert.NotContains(t, call, "rcl_lat")
	}
}

func TestWgrib2_Decode_Match(t *testing.T) {
	f := &fakeWgrib2{
		inv: "1:0:REFC:entire atmosphere:(2 x 1):vt=2025050112\n" +
			"2:10:REFD:surface:(2 x 1):vt=2025050112\n",
		vals: map[string][]float32{"2": {5, 6}},
		lat:  []float32{40, 40},
		lon:  []float32{-100, -99},
	}
	w := newFakeWgrib2(f, surfaceLevel)
	assert.Equal(t, "wgrib2[:surface:]", w.Name())

	ds, err := w.Decode(context.Background(), "refc.grib2")
	require.NoError(t, err)
	assert.Equal(t, []string{"latitude", "longitude", "REFD"}, ds.Names())

	f.inv = "1:0:REFC:entire atmosphere:(2 x 1):vt=2025050112\n"
	_, err = w.Decode(context.Background(), "refc.grib2")
	assert.Error(t, err)
}

func TestWgrib2_UndefinedBecomesNaN(t *testing.T) {
	f := mrmsFake()
	f.vals["1"][1] = 9.999e20
	ds, err := newFakeWgrib2(f, nil).Decode(context.Background(), "mrms.grib2")
	require.NoError(t, err)
	v, _ := ds.Lookup("unknown")
	assert.True(t, math.IsNaN(v.Data[1]))
}

func TestWgrib2_ShortOutput(t *testing.T) {
	f := mrmsFake()
	f.lat = f.lat[:2]
	_, err := newFakeWgrib2(f, nil).Decode(context.Background(), "mrms.grib2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want 24")
}

func gribberRun(out string, err error) RunFunc {
	return func(_ context.Context, _ string, _ []string, consume func(io.Reader) error) error {
		if cerr := consume(strings.NewReader(out)); cerr != nil {
			return cerr
		}
		return err
	}
}

func TestGribber_Decode(t *testing.T) {
	g := NewGribber("gribber", discardLogger())
	g.run = gribberRun(`Latitude Longitude Value
38.0 238.0 10
38.0 239.0 NaN
38.0 240.0 45
37.0 238.0 -999
37.0 239.0 5
37.0 240.0 70
`, nil)

	ds, err := g.Decode(context.Background(), "mrms.grib2")
	require.NoError(t, err)

	lat, _ := ds.Lookup("latitude")
	lon, _ := ds.Lookup("longitude")
	v, _ := ds.Lookup("unknown")
	assert.Equal(t, []float64{38, 37}, lat.Data)
	assert.Equal(t, []float64{238, 239, 240}, lon.Data)
	assert.Equal(t, []int{2, 3}, v.Dims)
	assert.True(t, math.IsNaN(v.Data[1]))
	assert.Equal(t, -999.0, v.Data[3])
}

func TestGribber_Decode_Errors(t *testing.T) {
	tests := []struct {
		name string
		out  string
		err  error
		want string
	}{
		{"bad header", "Lat Lon Val\n1 2 3\n", nil, "expected field"},
		{"no data", "Latitude Longitude Value\n", nil, "no data returned"},
		{"bad value", "Latitude Longitude Value\n1 2 x\n", nil, "parse value"},
		{"irregular", "Latitude Longitude Value\n1 1 0\n1 2 0\n2 1 0\n2 3 0\n", nil, "not on a regular"},
		{"process failure", "Latitude Longitude Value\n1 1 0\n", errors.New("exit status 1"), "exit status 1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGribber("gribber", discardLogger())
			g.run = gribberRun(tc.out, tc.err)
			_, err := g.Decode(context.Background(), "x.grib2")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

// stubDecoder is a scripted Decoder.
type stubDecoder struct {
	name  string
	avail error
	ds    *domain.Dataset
	err   error
	calls int
}

func (s *stubDecoder) Name() string     { return s.name }
func (s *stubDecoder) Available() error { return s.avail }
func (s *stubDecoder) Decode(context.Context, string) (*domain.Dataset, error) {
	s.calls++
	return s.ds, s.err
}

func TestChain_FallsBackInOrder(t *testing.T) {
	metrics := observability.NewMetrics()
	first := &stubDecoder{name: "wgrib2", err: errors.New("bad template")}
	second := &stubDecoder{name: "gribber", ds: &domain.Dataset{Variables: []domain.Variable{{Name: "unknown"}}}}

	chain, err := NewChain(time.Second, discardLogger(), metrics, first, second)
	require.NoError(t, err)

	ds, name, err := chain.Decode(context.Background(), "x.grib2")
	require.NoError(t, err)
	assert.Equal(t, "gribber", name)
	assert.Equal(t, []string{"unknown"}, ds.Names())
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DecodeAttempts.WithLabelValues("wgrib2", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DecodeAttempts.WithLabelValues("gribber", "success")))
}

func TestChain_AllFail(t *testing.T) {
	boom := errors.New("boom")
	chain, err := NewChain(0, discardLogger(), nil,
		&stubDecoder{name: "wgrib2", err: boom},
		&stubDecoder{name: "gribber", ds: &domain.Dataset{}},
	)
	require.NoError(t, err)

	_, _, err = chain.Decode(context.Background(), "x.grib2")
	require.Error(t, err)

	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	require.Len(t, derr.Attempts, 2)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "wgrib2: boom")
	assert.Contains(t, err.Error(), "gribber: no records decoded")
}

func TestNewChain_SkipsUnavailable(t *testing.T) {
	missing := &stubDecoder{name: "wgrib2", avail: errors.New("not found")}
	ok := &stubDecoder{name: "gribber"}

	chain, err := NewChain(0, discardLogger(), nil, missing, ok)
	require.NoError(t, err)
	assert.Equal(t, []string{"gribber"}, chain.Names())

	_, err = NewChain(0, discardLogger(), nil, missing)
	assert.ErrorIs(t, err, ErrNoDecoders)
}
