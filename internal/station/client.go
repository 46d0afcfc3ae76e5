// Package station fetches the latest pre-rendered NWS RIDGE radar image for a
// NEXRAD station.
package station

import (
	"context"
	"fmt"
	"image"
	"image/gif"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// maxBody bounds the image download.
const maxBody = 32 << 20

// StatusError is returned for any non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Client downloads station GIFs from a RIDGE-compatible base URL.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a station image client. Requests are not retried.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// URL is the image location for station.
func (c *Client) URL(station string) string {
	return fmt.Sprintf("%s/%s_0.gif", c.baseURL, station)
}

// Fetch downloads and decodes the current image for station.
func (c *Client) Fetch(ctx context.Context, station string) (image.Image, error) {
	u := c.URL(station)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", u)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, errors.WithStack(&StatusError{URL: u, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))})
	}

	img, err := gif.Decode(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, errors.Wrapf(err, "decode image from %s", u)
	}
	c.logger.Debug("station image fetched", "station", station, "bounds", img.Bounds().String())
	return img, nil
}
