// Command issue-token mints a bearer token for the registration API.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/movmais/backend/internal/infrastructure/auth"
	"github.com/movmais/backend/internal/infrastructure/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	os.Exit(run(os.Args[1:], cfg.JWT, os.Stdout, os.Stderr))
}

// run prints the token on stdout so it can be captured by scripts
func run(args []string, cfg config.JWTConfig, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	subject := fs.String("subject", "", "Operator or system the token is issued to (required)")
	ttl := fs.Duration("ttl", cfg.TokenTTL, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *subject == "" {
		fmt.Fprintln(stderr, "issue-token: --subject is required")
		fs.Usage()
		return 2
	}
	if *ttl <= 0 {
		fmt.Fprintln(stderr, "issue-token: --ttl must be positive")
		return 2
	}

	tokens, err := auth.NewTokenService(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "issue-token: %v\n", err)
		return 1
	}
	token, expiresAt, err := tokens.IssueWithTTL(*subject, *ttl)
	if err != nil {
		fmt.Fprintf(stderr, "issue-token: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, token)
	fmt.Fprintf(stderr, "Token for %q expires at %s\n", *subject, expiresAt.UTC().Format(time.RFC3339))
	return 0
}
