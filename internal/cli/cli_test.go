package cli

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/pipeline"
)

// isolateEnv clears the variables that would enable external services.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"KAFKA_BROKERS", "MAPBOX_TOKEN", "MAPBOX_ENABLED", "BASEMAP_DIR", "METRICS_TEXTFILE"} {
		t.Setenv(k, "")
	}
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("LOG_LEVEL", "error")
}

func run(t *testing.T, prog Program, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), prog, args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func stationServer(t *testing.T) *httptest.Server {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, 60, 40), palette.Plan9)
	img.Set(5, 5, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/KTLX_0.gif" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/gif")
		_, _ = w.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestParseBox(t *testing.T) {
	box, err := parseBox([]string{"30", "40", "-100", "-90"})
	require.NoError(t, err)
	assert.Equal(t, domain.Box{LatMin: 30, LatMax: 40, LonMin: -100, LonMax: -90}, box)

	_, err = parseBox([]string{"30", "north", "-100", "-90"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid max_lat "north"`)
}

func TestParseRegion_Defaults(t *testing.T) {
	r, err := parseRegion(nil)
	require.NoError(t, err)
	assert.Equal(t, domain.Radius{
		CenterLat: pipeline.DefaultLat,
		CenterLon: pipeline.DefaultLon,
		Degrees:   pipeline.DefaultRadius,
	}, r)
}

func TestParseRegion_PartialOverride(t *testing.T) {
	r, err := parseRegion([]string{"35.2", "-97.4"})
	require.NoError(t, err)
	assert.InDelta(t, 35.2, r.CenterLat, 1e-9)
	assert.InDelta(t, -97.4, r.CenterLon, 1e-9)
	assert.InDelta(t, pipeline.DefaultRadius, r.Degrees, 1e-9)
}

func TestParseRegion_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad lat", []string{"x"}, `invalid lat "x"`},
		{"lat out of range", []string{"91", "0"}, "out of range"},
		{"zero radius", []string{"35", "-97", "0"}, "must be positive"},
		{"negative radius", []string{"35", "-97", "-1"}, "must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRegion(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_GRIB_MissingArgs(t *testing.T) {
	isolateEnv(t)
	code, stdout, _ := run(t, GRIB, "only-one.grib2")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "Usage: gribpng <input.grib2[.gz]> <output.png>")
	assert.Contains(t, stdout, "❌ Error processing GRIB2: expected 2 or 6 arguments, got 1")
}

func TestRun_GRIB_PartialBounds(t *testing.T) {
	isolateEnv(t)
	code, stdout, _ := run(t, GRIB, "in.grib2", "out.png", "30", "40", "-100")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "crop needs all four bounds, got 3")
}

func TestRun_GRIB_NegativeBoundsAreNotFlags(t *testing.T) {
	isolateEnv(t)
	t.Setenv("WGRIB2_PATH", "/nonexistent/wgrib2")
	t.Setenv("GRIBBER_PATH", "/nonexistent/gribber")

	code, stdout, _ := run(t, GRIB, "in.grib2", "out.png", "30", "40", "-100", "-90")
	assert.Equal(t, 1, code)
	assert.NotContains(t, stdout, "Usage:")
	assert.Contains(t, stdout, "❌ Error processing GRIB2: no GRIB2 decoder available")
}

func TestRun_MRMS_NoDecoder(t *testing.T) {
	isolateEnv(t)
	t.Setenv("WGRIB2_PATH", "/nonexistent/wgrib2")
	t.Setenv("GRIBBER_PATH", "/nonexistent/gribber")

	code, stdout, stderr := run(t, MRMS, "in.grib2", "out.png", "35.2", "-97.4", "2")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "❌ Error processing MRMS: no GRIB2 decoder available")
	assert.Contains(t, stderr, "run failed")
}

func TestRun_MRMS_BadRadius(t *testing.T) {
	isolateEnv(t)
	code, stdout, _ := run(t, MRMS, "in.grib2", "out.png", "35", "-97", "0")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "Usage: mrmspng")
	assert.Contains(t, stdout, "radius_deg must be positive")
}

func TestRun_Station_Success(t *testing.T) {
	isolateEnv(t)
	srv := stationServer(t)
	dir := t.TempDir()
	metricsFile := filepath.Join(dir, "radar.prom")
	t.Setenv("STATION_BASE_URL", srv.URL)
	t.Setenv("METRICS_TEXTFILE", metricsFile)

	out := filepath.Join(dir, "ktlx.png")
	code, stdout, _ := run(t, Station, "KTLX", out)
	require.Equal(t, 0, code, stdout)

	assert.Contains(t, stdout, "Fetching radar from: "+srv.URL+"/KTLX_0.gif")
	assert.Contains(t, stdout, "Image size: (40, 60, 3)")
	assert.Contains(t, stdout, "✅ Enhanced radar image saved: "+out)
	assert.FileExists(t, out)

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "storm_radar_runs_total")
	assert.Contains(t, string(prom), `pipeline="station"`)
}

func TestRun_Station_NotFound(t *testing.T) {
	isolateEnv(t)
	srv := stationServer(t)
	t.Setenv("STATION_BASE_URL", srv.URL)

	out := filepath.Join(t.TempDir(), "kxxx.png")
	code, stdout, _ := run(t, Station, "KXXX", out)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "❌ Error: ")
	assert.Contains(t, stdout, "404")
	assert.NoFileExists(t, out)
}

func TestRun_Station_WrongArgCount(t *testing.T) {
	isolateEnv(t)
	code, stdout, _ := run(t, Station, "KTLX")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "Usage: stationpng <STATION> <output.png>")
}

func TestRun_InvalidConfig(t *testing.T) {
	isolateEnv(t)
	t.Setenv("LOG_FORMAT", "xml")
	code, stdout, stderr := run(t, Station, "KTLX", "out.png")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "❌ Error: LOG_FORMAT must be text or json")
	assert.Contains(t, stderr, "failed to load config")
}
