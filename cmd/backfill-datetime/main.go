// Command backfill-datetime splits stored quote or order timestamps into local date and time columns.
package main

import (
	"os"

	"github.com/movmais/backend/internal/interfaces/cli"
)

func main() {
	os.Exit(cli.Main(cli.CommandBackfillDatetime, os.Args[1:], os.Stderr))
}
