package persistence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestPostgresErrorClassifier(t *testing.T) {
	c := PostgresErrorClassifier{}

	tests := []struct {
		name    string
		err     error
		unique  bool
		missing bool
		data    bool
	}{
		{"nil", nil, false, false, false},
		{"plain error", errors.New("boom"), false, false, false},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, true, false, false},
		{"pgx unique violation", &pgconn.PgError{Code: "23505"}, true, false, false},
		{"wrapped pgx unique violation", fmt.Errorf("insert order: %w", &pgconn.PgError{Code: "23505"}), true, false, false},
		{"pq unique violation", &pq.Error{Code: "23505"}, true, false, false},
		{"pgx undefined table", &pgconn.PgError{Code: "42P01"}, false, true, false},
		{"pq undefined table", fmt.Errorf("scan: %w", &pq.Error{Code: "42P01"}), false, true, false},
		{"other sql state", &pgconn.PgError{Code: "23503"}, false, false, false},
		{"pgx string too long", fmt.Errorf("insert order: %w", &pgconn.PgError{Code: "22001"}), false, false, true},
		{"pgx numeric out of range", &pgconn.PgError{Code: "22003"}, false, false, true},
		{"pq invalid text representation", &pq.Error{Code: "22P02"}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unique, c.IsUniqueViolation(tt.err))
			assert.Equal(t, tt.missing, c.IsMissingRelation(tt.err))
			assert.Equal(t, tt.data, c.IsDataException(tt.err))
		})
	}
}
