package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/couchcryptid/storm-data-radar/internal/decode"
	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/render"
	"github.com/couchcryptid/storm-data-radar/internal/source"
)

// Default MRMS event location and window.
const (
	DefaultLat    = 37.403147
	DefaultLon    = -121.969814
	DefaultRadius = 3.0
)

// MRMSRequest renders an MRMS reflectivity file around an event.
type MRMSRequest struct {
	Input  string
	Output string
	// Region center uses signed longitude.
	Region domain.Radius
}

// MRMSToPNG decodes an MRMS file, crops it around req.Region and draws the
// regional map.
func (p *Pipeline) MRMSToPNG(ctx context.Context, req MRMSRequest) (domain.RenderResult, error) {
	return p.run(ctx, domain.PipelineMRMS, func(ctx context.Context) (domain.RenderResult, error) {
		if p.decoder == nil {
			return domain.RenderResult{}, errors.New("no GRIB2 decoder configured")
		}
		if req.Region.Degrees <= 0 {
			return domain.RenderResult{}, errors.Errorf("radius must be positive, got %v", req.Region.Degrees)
		}
		p.report.Step("Processing: %s", filepath.Base(req.Input))

		local, err := source.Open(ctx, req.Input, p.logger)
		if err != nil {
			return domain.RenderResult{}, err
		}
		defer p.closeSource(local)

		loaded, err := decode.LoadMRMS(ctx, p.decoder, local.Path)
		if err != nil {
			return domain.RenderResult{}, err
		}
		full := loaded.Field
		rows, cols := full.Values.Shape()
		p.report.Step("Loaded GRIB2 via %s — shape (%d, %d)", loaded.Decoder, rows, cols)
		if !full.ValidTime.IsZero() {
			p.report.Step("  Valid: %s", full.ValidTime.UTC().Format(time.DateTime))
		}
		p.report.Step("  Reflectivity range: %s dBZ", rangeText(full.Values))

		conv := full.Coords.Convention()
		gb := req.Region.GridBox(conv)
		p.report.Step("  Grid lon range for crop: %.2f – %.2f (%s)", gb.LonMin, gb.LonMax, conv)

		field := domain.CropRadius(full, req.Region)
		p.report.Step("  Cropped to (%d, %d) (±%s° around event)", field.Values.Rows, field.Values.Cols, degrees(req.Region.Degrees))
		if field.Values.Empty() {
			p.logger.Warn("event window does not overlap the grid, rendering base map only",
				"lat", req.Region.CenterLat, "lon", req.Region.CenterLon)
		}
		p.metrics.GridCells.WithLabelValues(domain.PipelineMRMS).Set(float64(len(field.Values.Values)))

		place := p.lookupPlace(ctx, req.Region)
		opts := render.MapOptions{Options: p.renderOptions(), Basemap: p.basemap, Label: place.Name}

		p.report.Step("Rendering map (±%s° around %.2f, %.2f)...", degrees(req.Region.Degrees), req.Region.CenterLat, req.Region.CenterLon)
		out, err := render.RenderMap(field, req.Region, domain.MRMSScale(), opts, req.Output)
		if err != nil {
			return domain.RenderResult{}, err
		}
		p.report.Success("Map saved: %s (%.0f KB)", out.Path, float64(out.Bytes)/1024)
		p.report.Success("MRMS processing complete")

		res := fromOutput(out)
		withRange(&res, field.Values)
		region := req.Region
		res.Region = &region
		res.Variable = loaded.Variable
		res.Decoder = loaded.Decoder
		res.Place = place.FormattedAddress
		res.ValidTime = full.ValidTime
		return res, nil
	})
}

// lookupPlace names the event location. Failures only cost the label.
func (p *Pipeline) lookupPlace(ctx context.Context, r domain.Radius) domain.Place {
	if p.places == nil {
		return domain.Place{}
	}
	place, err := p.places.ReverseGeocode(ctx, r.CenterLat, r.CenterLon)
	if err != nil {
		p.logger.Warn("reverse geocoding failed, using default label", "error", err,
			"lat", r.CenterLat, "lon", r.CenterLon)
		return domain.Place{}
	}
	return place
}
