package decode

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/pkg/errors"

	"github.com/couchcryptid/storm-data-radar/internal/config"
	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/observability"
)

// surfaceLevel retries wgrib2 restricted to surface records when the full
// file cannot be decoded as one dataset.
var surfaceLevel = regexp.MustCompile(`:surface:`)

// GenericChain is wgrib2, then wgrib2 on surface records, then gribber.
func GenericChain(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*Chain, error) {
	return NewChain(cfg.DecodeTimeout, logger, metrics,
		NewWgrib2(cfg.Wgrib2Path, nil, logger),
		NewWgrib2(cfg.Wgrib2Path, surfaceLevel, logger),
		NewGribber(cfg.GribberPath, logger),
	)
}

// MRMSChain is wgrib2 with gribber as the fallback.
func MRMSChain(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*Chain, error) {
	return NewChain(cfg.DecodeTimeout, logger, metrics,
		NewWgrib2(cfg.Wgrib2Path, nil, logger),
		NewGribber(cfg.GribberPath, logger),
	)
}

// Loaded is a decoded reflectivity field and how it was obtained.
type Loaded struct {
	Field    domain.Field
	Variable string
	Decoder  string
	// Degraded is true when coordinates were synthesized.
	Degraded bool
}

// Source decodes a file into a dataset. *Chain implements it.
type Source interface {
	Decode(ctx context.Context, path string) (*domain.Dataset, string, error)
}

// LoadGeneric decodes path, picks the reflectivity variable, collapses it to
// 2-D and returns it with signed longitudes. Missing coordinates fall back
// to the CONUS placeholder grid.
func LoadGeneric(ctx context.Context, src Source, path string) (Loaded, error) {
	ds, decoder, err := src.Decode(ctx, path)
	if err != nil {
		return Loaded{}, err
	}
	v, err := ds.ResolveDataVariable()
	if err != nil {
		return Loaded{}, errors.WithStack(err)
	}
	grid, err := v.Collapse2D()
	if err != nil {
		return Loaded{}, err
	}
	coords, degraded, err := ds.ResolveCoordinates(grid.Rows, grid.Cols)
	if err != nil {
		return Loaded{}, errors.Wrap(err, "resolve coordinates")
	}
	return Loaded{
		Field:    domain.Field{Values: grid, Coords: coords.Signed(), ValidTime: ds.ValidTime},
		Variable: v.Name,
		Decoder:  decoder,
		Degraded: degraded,
	}, nil
}

// ErrNoCoordinates is returned when an MRMS file decodes without a lat/lon grid.
var ErrNoCoordinates = errors.New("decoded MRMS data has no latitude/longitude grid")

// LoadMRMS decodes an MRMS file into a field with 2-D coordinates in the
// file's own longitude convention and the −999 sentinel masked to NaN.
func LoadMRMS(ctx context.Context, src Source, path string) (Loaded, error) {
	ds, decoder, err := src.Decode(ctx, path)
	if err != nil {
		return Loaded{}, err
	}
	v, err := ds.ResolveDataVariable()
	if err != nil {
		return Loaded{}, errors.WithStack(err)
	}
	grid, err := v.Collapse2D()
	if err != nil {
		return Loaded{}, err
	}
	coords, degraded, err := ds.ResolveCoordinates(grid.Rows, grid.Cols)
	if err != nil {
		return Loaded{}, errors.Wrap(err, "resolve coordinates")
	}
	if degraded {
		return Loaded{}, errors.WithStack(ErrNoCoordinates)
	}
	return Loaded{
		Field:    domain.Field{Values: domain.MaskMissing(grid), Coords: coords.Mesh(), ValidTime: ds.ValidTime},
		Variable: v.Name,
		Decoder:  decoder,
	}, nil
}
