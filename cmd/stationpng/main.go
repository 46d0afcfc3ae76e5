// Command stationpng fetches a NEXRAD station image and saves it in a titled figure.
package main

import (
	"os"

	"github.com/couchcryptid/storm-data-radar/internal/cli"
)

func main() {
	os.Exit(cli.Main(cli.Station))
}
