// Package domain models NOAA radar reflectivity grids and the rules for
// cropping and colorizing them.
//
// # Data Sources
//
// Gridded reflectivity arrives as GRIB2 files. Two families are handled:
//
//   - Generic NEXRAD/HRRR composite reflectivity products, where the variable
//     name depends on the decoder ("unknown", "refc", "REFC", ...).
//   - MRMS (Multi-Radar Multi-Sensor) CONUS mosaics published to the
//     noaa-mrms-pds S3 bucket, e.g. ReflectivityAtLowestAltitude at 0.50°.
//     The full grid is 3500×7000 at 0.01°.
//
// Single-station images come from the NWS RIDGE service as animated GIFs:
//
//	https://radar.weather.gov/ridge/standard/{STATION}_0.gif
//
// # Grid Conventions
//
// Longitude convention:
//
//	MRMS grids use 0–360° east longitudes (CONUS spans roughly 230–300).
//	Callers speak −180..180. Convert the query into the grid's convention
//	before selecting ([NormalizeLon360]: −121.969814 → 238.030186) and convert
//	the selected longitudes back afterwards ([SignedLon]: lon > 180 → lon − 360).
//	A grid is treated as 0–360 when any of its longitudes exceeds 180.
//
// Missing data:
//
//	MRMS encodes "no coverage" as −999. Any value ≤ −990 is replaced with NaN
//	by [MaskMissing] before rendering. NaN cells are never colored.
//
// Leading dimensions:
//
//	Decoded variables may carry time or level axes ahead of (lat, lon). They
//	are collapsed by taking index 0 when the axis has length 1 and the last
//	index otherwise (see [Variable.Collapse2D]).
//
// # Reflectivity Color Scales
//
// Both scales are discrete: value v falls in bin i when bounds[i] ≤ v < bounds[i+1].
// Values below the first bound are transparent. Values at or above the top
// bound take the last color.
//
//	Generic: −30 … 80 dBZ, 16 bins, cyan through white.
//	MRMS:    −5 … 80 dBZ, 16 bins, grey through white (the NWS palette).
package domain
