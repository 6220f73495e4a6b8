// Command freight-best-option fills the best deadline and cost of stored quotes that lack them.
package main

import (
	"os"

	"github.com/movmais/backend/internal/interfaces/cli"
)

func main() {
	os.Exit(cli.Main(cli.CommandFreightBestOption, os.Args[1:], os.Stderr))
}
