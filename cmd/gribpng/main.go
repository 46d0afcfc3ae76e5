// Command gribpng renders a GRIB2 reflectivity file as a PNG.
package main

import (
	"os"

	"github.com/couchcryptid/storm-data-radar/internal/cli"
)

func main() {
	os.Exit(cli.Main(cli.GRIB))
}
