package pipeline

import (
	"context"

	"github.com/pkg/errors"

	"github.com/couchcryptid/storm-data-radar/internal/decode"
	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/render"
	"github.com/couchcryptid/storm-data-radar/internal/source"
)

// GRIBRequest renders a GRIB2 file on plain lon/lat axes.
type GRIBRequest struct {
	// Input is a local path or blob URL, optionally gzip-compressed.
	Input  string
	Output string
	// Box crops the field and fixes the axis limits. Nil renders everything.
	Box *domain.Box
}

// GRIBToPNG decodes req.Input, optionally crops it, and writes a PNG.
func (p *Pipeline) GRIBToPNG(ctx context.Context, req GRIBRequest) (domain.RenderResult, error) {
	return p.run(ctx, domain.PipelineGRIB, func(ctx context.Context) (domain.RenderResult, error) {
		if p.decoder == nil {
			return domain.RenderResult{}, errors.New("no GRIB2 decoder configured")
		}
		local, err := source.Open(ctx, req.Input, p.logger)
		if err != nil {
			return domain.RenderResult{}, err
		}
		defer p.closeSource(local)

		p.report.Step("Opening GRIB2 file: %s", local.Path)
		loaded, err := decode.LoadGeneric(ctx, p.decoder, local.Path)
		if err != nil {
			return domain.RenderResult{}, err
		}
		p.report.Step("Using variable: %s", loaded.Variable)
		if loaded.Degraded {
			p.logger.Warn("file has no coordinates, using placeholder CONUS grid",
				"variable", loaded.Variable, "decoder", loaded.Decoder)
		}

		field := loaded.Field
		rows, cols := field.Values.Shape()
		p.report.Step("Data shape: (%d, %d)", rows, cols)
		p.report.Step("Data range: %s", rangeText(field.Values))

		if req.Box != nil {
			field = domain.CropBox(field, *req.Box)
			p.logger.Info("cropped to box", "box", req.Box.String(), "rows", field.Values.Rows, "cols", field.Values.Cols)
			if field.Values.Empty() {
				p.logger.Warn("crop box does not overlap the grid, rendering empty axes", "box", req.Box.String())
			}
		}
		p.metrics.GridCells.WithLabelValues(domain.PipelineGRIB).Set(float64(len(field.Values.Values)))

		out, err := render.RenderGeneric(field, req.Box, domain.GenericScale(), p.renderOptions(), req.Output)
		if err != nil {
			return domain.RenderResult{}, err
		}
		p.report.Success("Radar image saved: %s", out.Path)

		res := fromOutput(out)
		withRange(&res, field.Values)
		res.Variable = loaded.Variable
		res.Decoder = loaded.Decoder
		res.Box = req.Box
		res.ValidTime = field.ValidTime
		return res, nil
	})
}
