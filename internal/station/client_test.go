package station

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	return NewClient(baseURL, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func gifBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, w, h), palette.Plan9)
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestClient_URL(t *testing.T) {
	c := testClient("https://radar.weather.gov/ridge/standard/")
	assert.Equal(t, "https://radar.weather.gov/ridge/standard/KTLX_0.gif", c.URL("KTLX"))
}

func TestClient_Fetch_Success(t *testing.T) {
	body := gifBytes(t, 12, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/KMUX_0.gif", r.URL.Path)
		w.Header().Set("Content-Type", "image/gif")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	img, err := testClient(srv.URL).Fetch(context.Background(), "KMUX")
	require.NoError(t, err)
	assert.Equal(t, 12, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())
}

func TestClient_Fetch_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no such station"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Fetch(context.Background(), "KXXX")
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, "no such station", se.Body)
	assert.Contains(t, err.Error(), "404")
}

func TestClient_Fetch_NotAGIF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Fetch(context.Background(), "KTLX")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode image")
}

func TestClient_Fetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 50*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := c.Fetch(context.Background(), "KTLX")
	require.Error(t, err)
}
