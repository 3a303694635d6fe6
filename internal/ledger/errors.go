package ledger

import "errors"

// Error taxonomy for the allocation ledger. Handlers map these onto the
// {success,data,message} envelope; everything else is treated as internal
// and surfaced as a generic failure.
var (
	// ErrNotFound: unknown lot, bucket or gate pass id. Terminal.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput: non-positive or malformed quantity, missing required
	// location fields, releasing more than is still allocated. Terminal.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientQuantity: requested amount exceeds a bucket's current
	// balance. Terminal; the message names the bucket and the shortfall.
	ErrInsufficientQuantity = errors.New("insufficient quantity")

	// ErrConflict: concurrent modification detected on a bucket or counter.
	// Retried internally a bounded number of times, then surfaced as
	// retryable.
	ErrConflict = errors.New("concurrent modification, retry")
)
