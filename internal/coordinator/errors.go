package coordinator

import "errors"

// Error taxonomy for service calls and setup.
//
// Validation-class errors (ErrValidation, ErrInvalidParameter,
// ErrMissingValue, ErrTargetNotFound, ErrNoSourceDevice) are surfaced to
// the caller without a command being sent and are never retried.
// ErrTransport is retryable by the caller; ErrSourceUnavailable at setup
// is a hard failure.
var (
	// ErrValidation indicates malformed service-call input.
	ErrValidation = errors.New("coordinator: validation failed")

	// ErrInvalidParameter indicates a parameter id that is not two hex digits.
	ErrInvalidParameter = errors.New("coordinator: invalid parameter id")

	// ErrMissingValue indicates a set call without a value.
	ErrMissingValue = errors.New("coordinator: missing value")

	// ErrTargetNotFound indicates no field of the service-call target
	// resolved to a protocol device id.
	ErrTargetNotFound = errors.New("coordinator: target not resolved")

	// ErrNoSourceDevice indicates target resolution succeeded but no
	// source identity could be determined: no explicit from id, no bound
	// remote and no usable gateway identity.
	ErrNoSourceDevice = errors.New("coordinator: no source device")

	// ErrTransport indicates a command send or gateway operation failed.
	ErrTransport = errors.New("coordinator: transport failure")

	// ErrSourceUnavailable indicates the RF interface is misconfigured.
	// Setup failures of this class are not retryable.
	ErrSourceUnavailable = errors.New("coordinator: source unavailable")

	// ErrSchema indicates neither the merged nor the declared-only schema
	// could construct a usable gateway client.
	ErrSchema = errors.New("coordinator: unusable schema")

	// ErrBusy indicates a discovery pass is already in flight.
	ErrBusy = errors.New("coordinator: discovery already running")
)
