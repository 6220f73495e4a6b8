// Package models contains the GORM persistence models. Each model maps one
// table of migrations/ and converts to and from its domain type with
// ToDomain/FromDomain. JSON payload columns are stored as jsonb text.
package models
