// Command freight-orders ingests one window of vendor orders for a tenant, reconciling the quotes they reference.
package main

import (
	"os"

	"github.com/movmais/backend/internal/interfaces/cli"
)

func main() {
	os.Exit(cli.Main(cli.CommandFreightOrders, os.Args[1:], os.Stderr))
}
