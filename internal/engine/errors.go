package engine

import "errors"

// Sentinel results surfaced to the host driver. These are outcomes, not
// faults: the driver maps them to its own status codes.
var (
	// ErrNotFound marks a folder or item that does not exist (including
	// an unrecognized folder identifier prefix).
	ErrNotFound = errors.New("not found")

	// ErrUnsupported marks an operation the target domain cannot
	// perform, such as a cross-domain move.
	ErrUnsupported = errors.New("operation not supported")
)

// Policy rejections for SendMail and message creation. Logged at
// informational level; they carry no partial side effects.
var (
	ErrQuotaExceeded     = errors.New("storage quota exceeded")
	ErrSendThrottled     = errors.New("send frequency limit not reached")
	ErrTooManyRecipients = errors.New("too many recipients")
	ErrSenderMismatch    = errors.New("sender address not permitted for account")
)
