// Command backfill-quote-options re-derives missing quote option rows from the stored delivery options snapshot.
package main

import (
	"os"

	"github.com/movmais/backend/internal/interfaces/cli"
)

func main() {
	os.Exit(cli.Main(cli.CommandBackfillQuoteOptions, os.Args[1:], os.Stderr))
}
