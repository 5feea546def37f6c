package events

import (
	"errors"
	"fmt"
)

// Sentinel errors for the event pipeline. Stores and transports return these
// (optionally wrapped) so callers can branch on the failure class.
//
// - ErrVersionConflict: a row for (aggregateId, version) already exists. The
//   producing side reloads and retries with a recomputed version; the
//   consuming side treats it as "already recorded".
// - ErrPublish: the broker rejected or never received a produce request. The
//   caller must not assume delivery.
// - ErrTransactionAborted: a transactional batch was rolled back; none of its
//   messages are visible to consumers.
// - ErrNotFound: the requested snapshot or event range does not exist.
var (
	ErrVersionConflict    = errors.New("version conflict")
	ErrPublish            = errors.New("publish failed")
	ErrTransactionAborted = errors.New("transaction aborted")
	ErrNotFound           = errors.New("not found")
)

// ValidationError reports a structurally unusable event. Messages carrying
// one are dropped, never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: field %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
