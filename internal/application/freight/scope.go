package freight

import (
	"errors"
	"strings"
	"time"

	"github.com/movmais/backend/internal/domain/freight"
	"github.com/movmais/backend/internal/domain/integration"
)

// RunScope identifies the tenant installation a run works for
type RunScope struct {
	CompanyID int64
	Platform  integration.PlatformSlug
}

// BatchRequest drives the keyset batch jobs (best option and backfills)
type BatchRequest struct {
	CompanyID int64 // 0 = every company
	From      *time.Time
	To        *time.Time
	BatchSize int
}

const (
	DefaultBatchSize = 1000
	MaxBatchSize     = 10000
)

func (r BatchRequest) filter(beforeID int64) freight.ScanFilter {
	size := r.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	if size > MaxBatchSize {
		size = MaxBatchSize
	}
	return freight.ScanFilter{
		CompanyID: r.CompanyID,
		From:      r.From,
		To:        r.To,
		BeforeID:  beforeID,
		Limit:     size,
	}
}

func storeError(classifier freight.ErrorClassifier, op string, err error) error {
	return freight.ClassifyStoreError(classifier, op, err)
}

// isStoreNotFound reports a credential that does not match any vendor store
func isStoreNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, freight.ErrStoreNotFound) ||
		strings.Contains(strings.ToLower(err.Error()), "store not found")
}
