package freight

import (
	"errors"
	"fmt"
)

var (
	ErrQuoteNotFound    = errors.New("freight: quote not found")
	ErrInvalidOrder     = errors.New("freight: invalid order row")
	ErrStoreNotFound    = errors.New("freight: store not found for credential")
	ErrRateLimited      = errors.New("freight: vendor rate limit exhausted")
	ErrUnexpectedStatus = errors.New("freight: unexpected vendor response status")

	// ErrSchemaMissing is returned when a target table does not exist
	ErrSchemaMissing = errors.New("freight: target table is missing, run `migrate up` before ingesting")
)

// ErrorClassifier tells driver-specific persistence errors apart without
// leaking the driver into the ingestion logic.
type ErrorClassifier interface {
	IsUniqueViolation(err error) bool
	IsMissingRelation(err error) bool
	// IsDataException reports a value the store rejected for its column,
	// such as text too long or a numeric out of range
	IsDataException(err error) bool
}

// ClassifyStoreError turns a missing table into ErrSchemaMissing and wraps everything else with op
func ClassifyStoreError(classifier ErrorClassifier, op string, err error) error {
	if classifier != nil && classifier.IsMissingRelation(err) {
		return fmt.Errorf("%w (%s: %v)", ErrSchemaMissing, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
