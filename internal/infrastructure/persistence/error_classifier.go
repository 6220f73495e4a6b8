package persistence

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/movmais/backend/internal/domain/freight"
)

// Postgres SQLSTATE codes the ingestion jobs react to
const (
	pgUniqueViolation = "23505"
	pgUndefinedTable  = "42P01"

	// pgDataExceptionClass covers 22001 string too long, 22003 numeric out of
	// range, 22P02 invalid text representation and the rest of class 22
	pgDataExceptionClass = "22"
)

// PostgresErrorClassifier recognizes Postgres errors from both pgx and lib/pq
type PostgresErrorClassifier struct{}

var _ freight.ErrorClassifier = PostgresErrorClassifier{}

// IsUniqueViolation reports a unique constraint violation
func (PostgresErrorClassifier) IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return sqlState(err) == pgUniqueViolation
}

// IsMissingRelation reports a query against a table that does not exist
func (PostgresErrorClassifier) IsMissingRelation(err error) bool {
	return sqlState(err) == pgUndefinedTable
}

// IsDataException reports a value rejected by the column it targets
func (PostgresErrorClassifier) IsDataException(err error) bool {
	return strings.HasPrefix(sqlState(err), pgDataExceptionClass)
}

func sqlState(err error) string {
	if err == nil {
		return ""
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
