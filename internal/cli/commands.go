package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/storm-data-radar/internal/decode"
	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/geocode"
	"github.com/couchcryptid/storm-data-radar/internal/pipeline"
	"github.com/couchcryptid/storm-data-radar/internal/render"
	"github.com/couchcryptid/storm-data-radar/internal/station"
)

func gribCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "gribpng <input.grib2[.gz]> <output.png> [min_lat max_lat min_lon max_lon]",
		Short: "Render a GRIB2 reflectivity file as a PNG.",
		Long: `gribpng decodes a GRIB2 file (optionally gzip-compressed, local or a blob URL
such as s3://bucket/key), picks the reflectivity variable and renders it on
longitude/latitude axes. Pass all four bounds to crop; bounds are inclusive.`,
		Args: func(_ *cobra.Command, args []string) error {
			switch len(args) {
			case 2, 6:
				return nil
			case 3, 4, 5:
				return usagef("crop needs all four bounds, got %d", len(args)-2)
			default:
				return usagef("expected 2 or 6 arguments, got %d", len(args))
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			req := pipeline.GRIBRequest{Input: args[0], Output: args[1]}
			if len(args) == 6 {
				box, err := parseBox(args[2:])
				if err != nil {
					return err
				}
				req.Box = &box
			}

			chain, err := decode.GenericChain(e.cfg, e.logger, e.metrics)
			if err != nil {
				return err
			}
			pub, closePub := e.publisher()
			defer closePub()

			d := e.deps()
			d.Decoder = chain
			d.Publisher = pub
			_, err = pipeline.New(d).GRIBToPNG(cmd.Context(), req)
			return err
		},
		DisableAutoGenTag: true,
	}
}

func mrmsCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "mrmspng <grib2_file> <output_png> [lat] [lon] [radius_deg]",
		Short: "Render MRMS reflectivity on a regional map around an event.",
		Long: `mrmspng decodes an MRMS reflectivity GRIB2 file, crops it to ±radius_deg
around the event location and draws it on a dark Lambert conformal map.
Defaults: lat 37.403147, lon -121.969814, radius 3.0.`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) < 2 || len(args) > 5 {
				return usagef("expected 2 to 5 arguments, got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			region, err := parseRegion(args[2:])
			if err != nil {
				return err
			}

			chain, err := decode.MRMSChain(e.cfg, e.logger, e.metrics)
			if err != nil {
				return err
			}
			pub, closePub := e.publisher()
			defer closePub()

			d := e.deps()
			d.Decoder = chain
			d.Publisher = pub
			d.Basemap = render.Basemap{Dir: e.cfg.BasemapDir, Layers: render.DarkLayers(), Logger: e.logger}
			if e.cfg.MapboxEnabled {
				d.Places = geocode.NewClient(e.cfg.MapboxToken, e.cfg.MapboxTimeout, e.metrics, e.logger)
				e.logger.Info("mapbox geocoding enabled", "timeout", e.cfg.MapboxTimeout)
			}
			_, err = pipeline.New(d).MRMSToPNG(cmd.Context(), pipeline.MRMSRequest{
				Input:  args[0],
				Output: args[1],
				Region: region,
			})
			return err
		},
		DisableAutoGenTag: true,
	}
}

func stationCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stationpng <STATION> <output.png>",
		Short: "Fetch a NEXRAD station image and save it in a titled figure.",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 2 {
				return usagef("expected 2 arguments, got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, closePub := e.publisher()
			defer closePub()

			d := e.deps()
			d.Stations = station.NewClient(e.cfg.StationBaseURL, e.cfg.StationTimeout, e.logger)
			d.Publisher = pub
			_, err := pipeline.New(d).StationToPNG(cmd.Context(), pipeline.StationRequest{
				Station: args[0],
				Output:  args[1],
			})
			return err
		},
		DisableAutoGenTag: true,
	}
}

func parseFloat(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, usagef("invalid %s %q", name, s)
	}
	return v, nil
}

// parseBox reads min_lat max_lat min_lon max_lon.
func parseBox(args []string) (domain.Box, error) {
	names := [4]string{"min_lat", "max_lat", "min_lon", "max_lon"}
	var v [4]float64
	for i, name := range names {
		f, err := parseFloat(name, args[i])
		if err != nil {
			return domain.Box{}, err
		}
		v[i] = f
	}
	return domain.Box{LatMin: v[0], LatMax: v[1], LonMin: v[2], LonMax: v[3]}, nil
}

// parseRegion reads the optional lat, lon and radius, applying defaults.
func parseRegion(args []string) (domain.Radius, error) {
	r := domain.Radius{
		CenterLat: pipeline.DefaultLat,
		CenterLon: pipeline.DefaultLon,
		Degrees:   pipeline.DefaultRadius,
	}
	targets := []*float64{&r.CenterLat, &r.CenterLon, &r.Degrees}
	names := []string{"lat", "lon", "radius_deg"}
	for i, a := range args {
		v, err := parseFloat(names[i], a)
		if err != nil {
			return domain.Radius{}, err
		}
		*targets[i] = v
	}
	if r.CenterLat < -90 || r.CenterLat > 90 {
		return domain.Radius{}, usagef("lat %v out of range", r.CenterLat)
	}
	if r.Degrees <= 0 {
		return domain.Radius{}, usagef("radius_deg must be positive, got %v", r.Degrees)
	}
	return r, nil
}
