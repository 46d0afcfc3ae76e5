// Package pipeline runs the three image pipelines end to end: acquire input,
// decode or fetch, crop, render, then report, record metrics and notify.
package pipeline

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/couchcryptid/storm-data-radar/internal/decode"
	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/notify"
	"github.com/couchcryptid/storm-data-radar/internal/observability"
	"github.com/couchcryptid/storm-data-radar/internal/render"
)

// StationFetcher downloads the current image for a radar station.
type StationFetcher interface {
	URL(station string) string
	Fetch(ctx context.Context, station string) (image.Image, error)
}

// Deps are the collaborators a pipeline may use. Only those needed by the
// pipeline being run have to be set.
type Deps struct {
	// Decoder turns GRIB2 files into datasets.
	Decoder decode.Source
	// Stations fetches station images.
	Stations StationFetcher
	// Places names the MRMS event location. Nil disables the lookup.
	Places domain.PlaceLookup
	// Publisher announces successful renders. Nil disables notifications.
	Publisher notify.Publisher
	// Basemap provides MRMS map layers.
	Basemap render.Basemap

	Reporter *Reporter
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Clock    clockwork.Clock
}

// Pipeline orchestrates single-shot render runs.
type Pipeline struct {
	decoder   decode.Source
	stations  StationFetcher
	places    domain.PlaceLookup
	publisher notify.Publisher
	basemap   render.Basemap
	report    *Reporter
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
}

// New creates a Pipeline, filling in no-op defaults for optional deps.
func New(d Deps) *Pipeline {
	p := &Pipeline{
		decoder:   d.Decoder,
		stations:  d.Stations,
		places:    d.Places,
		publisher: d.Publisher,
		basemap:   d.Basemap,
		report:    d.Reporter,
		logger:    d.Logger,
		metrics:   d.Metrics,
		clock:     d.Clock,
	}
	if p.publisher == nil {
		p.publisher = notify.Nop{}
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	if p.metrics == nil {
		p.metrics = observability.NewMetrics()
	}
	if p.clock == nil {
		p.clock = clockwork.NewRealClock()
	}
	if p.basemap.Logger == nil {
		p.basemap.Logger = p.logger
	}
	return p
}

// publishTimeout bounds the notification write after the PNG exists.
const publishTimeout = 10 * time.Second

// run wraps one pipeline execution: panics become errors with a stack,
// metrics are recorded, and successful results are published.
func (p *Pipeline) run(ctx context.Context, name string, fn func(context.Context) (domain.RenderResult, error)) (res domain.RenderResult, err error) {
	start := p.clock.Now()
	logger := p.logger.With("pipeline", name)
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
			res = domain.RenderResult{}
		}
		p.metrics.Runs.WithLabelValues(name, observability.Outcome(err)).Inc()
		p.metrics.RunDuration.WithLabelValues(name).Observe(p.clock.Since(start).Seconds())
		if err != nil {
			logger.Debug("pipeline failed", "error", err)
		}
	}()

	if err := ctx.Err(); err != nil {
		return domain.RenderResult{}, errors.WithStack(err)
	}

	res, err = fn(ctx)
	if err != nil {
		return domain.RenderResult{}, err
	}
	res.Pipeline = name
	res.GeneratedAt = p.clock.Now().UTC()
	p.metrics.OutputBytes.WithLabelValues(name).Set(float64(res.Bytes))

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	perr := p.publisher.Publish(pubCtx, res)
	cancel()
	if perr != nil {
		logger.Warn("render notification failed", "error", perr, "output", res.OutputPath)
	}
	logger.Info("render complete", "output", res.OutputPath, "bytes", res.Bytes, "duration", p.clock.Since(start))
	return res, nil
}

// closeSource removes temporary input files, logging rather than failing.
func (p *Pipeline) closeSource(c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		p.logger.Warn("failed to remove temporary input", "error", err)
	}
}

func (p *Pipeline) renderOptions() render.Options {
	return render.Options{Clock: p.clock}
}

func withRange(res *domain.RenderResult, g domain.Grid) {
	res.Rows, res.Cols = g.Shape()
	if lo, hi, ok := g.Range(); ok {
		res.MinDBZ, res.MaxDBZ = &lo, &hi
	}
}

func fromOutput(out render.Output) domain.RenderResult {
	return domain.RenderResult{
		OutputPath: out.Path,
		Bytes:      out.Bytes,
		Width:      out.Width,
		Height:     out.Height,
	}
}
