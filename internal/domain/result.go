package domain

import (
	"context"
	"time"
)

// Pipeline names used in results, metrics, and notifications.
const (
	PipelineGRIB    = "grib"
	PipelineMRMS    = "mrms"
	PipelineStation = "station"
)

// RenderResult describes a PNG written by one of the pipelines.
type RenderResult struct {
	Pipeline    string    `json:"pipeline"`
	OutputPath  string    `json:"output_path"`
	Bytes       int64     `json:"bytes"`
	Width       int       `json:"width_px"`
	Height      int       `json:"height_px"`
	Rows        int       `json:"rows,omitempty"`
	Cols        int       `json:"cols,omitempty"`
	MinDBZ      *float64  `json:"min_dbz,omitempty"`
	MaxDBZ      *float64  `json:"max_dbz,omitempty"`
	Variable    string    `json:"variable,omitempty"`
	Decoder     string    `json:"decoder,omitempty"`
	Station     string    `json:"station,omitempty"`
	Region      *Radius   `json:"region,omitempty"`
	Box         *Box      `json:"box,omitempty"`
	Place       string    `json:"place,omitempty"`
	ValidTime   time.Time `json:"valid_time,omitzero"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Place is a human-readable name for a coordinate.
type Place struct {
	Name             string
	FormattedAddress string
	Lat              float64
	Lon              float64
}

// PlaceLookup resolves coordinates to a nearby place name.
type PlaceLookup interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (Place, error)
}
