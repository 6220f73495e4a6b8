// Package freight holds the ingestion and backfill jobs for freight quotes
// and orders. Every service here is scoped to a single run: caches and the
// confirmed/failed quote sets live on the instance and die with it.
package freight
