// Package integration contains the tenant integration bounded context.
// It models which companies are registered, which vendor platforms each of
// them has installed (with the credentials needed to poll it) and the
// audit trail of every ingestion run.
//
// Key concepts:
//   - Company: the tenant every ingested row is scoped to
//   - CompanyPlatform: a tenant-scoped credential/config blob keyed by platform slug
//   - RunLog: one audit row per job invocation, written best-effort
//
// Ports (repository interfaces) live here; adapters live in the
// infrastructure layer.
package integration
