// Command mrmspng renders MRMS reflectivity on a regional map around an event.
package main

import (
	"os"

	"github.com/couchcryptid/storm-data-radar/internal/cli"
)

func main() {
	os.Exit(cli.Main(cli.MRMS))
}
