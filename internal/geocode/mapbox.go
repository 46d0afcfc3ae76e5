// Package geocode names the event location on MRMS maps using the Mapbox
// Geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/observability"
)

// ErrNoResults is returned when Mapbox has no feature near the point.
var ErrNoResults = errors.New("no place found")

// Client implements domain.PlaceLookup using Mapbox reverse geocoding.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client. metrics may be nil.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.mapbox.com/geocoding/v5/mapbox.places",
		metrics: metrics,
		logger:  logger,
	}
}

// ReverseGeocode returns the nearest place or locality to lat/lon.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.Place, error) {
	place, err := c.reverse(ctx, lat, lon)
	if c.metrics != nil {
		outcome := observability.Outcome(err)
		if errors.Is(err, ErrNoResults) {
			outcome = "empty"
		}
		c.metrics.GeocodeRequests.WithLabelValues(outcome).Inc()
	}
	return place, err
}

func (c *Client) reverse(ctx context.Context, lat, lon float64) (domain.Place, error) {
	// Mapbox uses lon,lat order.
	coord := fmt.Sprintf("%.6f,%.6f", lon, lat)
	u := fmt.Sprintf("%s/%s.json", c.baseURL, coord)
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"place,locality"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Place{}, errors.Wrap(err, "create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// the URL carries the access token
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return domain.Place{}, errors.Wrap(err, "reverse geocode request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Place{}, errors.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return domain.Place{}, errors.Wrap(err, "decode response")
	}
	if len(mapboxResp.Features) == 0 {
		return domain.Place{}, errors.WithStack(ErrNoResults)
	}

	f := mapboxResp.Features[0]
	place := domain.Place{
		Name:             f.Text,
		FormattedAddress: f.PlaceName,
		Lat:              lat,
		Lon:              lon,
	}
	if len(f.Center) == 2 {
		place.Lon = f.Center[0]
		place.Lat = f.Center[1]
	}
	c.logger.Debug("reverse geocoded", "lat", lat, "lon", lon, "place", place.Name)
	return place, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
}
