package pipeline

import (
	"context"

	"github.com/pkg/errors"

	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/render"
)

// StationRequest re-frames a station's current radar image.
type StationRequest struct {
	Station string
	Output  string
}

// StationToPNG fetches the station GIF and writes it inside a titled figure.
func (p *Pipeline) StationToPNG(ctx context.Context, req StationRequest) (domain.RenderResult, error) {
	return p.run(ctx, domain.PipelineStation, func(ctx context.Context) (domain.RenderResult, error) {
		if p.stations == nil {
			return domain.RenderResult{}, errors.New("no station client configured")
		}
		if req.Station == "" {
			return domain.RenderResult{}, errors.New("station code is required")
		}
		p.report.Step("Fetching radar from: %s", p.stations.URL(req.Station))
		img, err := p.stations.Fetch(ctx, req.Station)
		if err != nil {
			return domain.RenderResult{}, err
		}
		b := img.Bounds()
		p.report.Step("Image size: (%d, %d, 3)", b.Dy(), b.Dx())

		out, err := render.RenderStation(img, req.Station, p.renderOptions(), req.Output)
		if err != nil {
			return domain.RenderResult{}, err
		}
		p.report.Success("Enhanced radar image saved: %s", out.Path)

		res := fromOutput(out)
		res.Station = req.Station
		return res, nil
	})
}
