package ramses

import "errors"

// Domain errors for the ramses package.
var (
	// ErrInvalidDeviceID is returned when a device identifier does not match
	// the two-digit type / six-digit serial colon format.
	ErrInvalidDeviceID = errors.New("ramses: invalid device id")

	// ErrInvalidVerb is returned when a command verb is not I, RQ, RP or W.
	ErrInvalidVerb = errors.New("ramses: invalid verb")

	// ErrInvalidCode is returned when a message code is not four hex digits.
	ErrInvalidCode = errors.New("ramses: invalid message code")

	// ErrInvalidAddrSet is returned when a command's address triple is not
	// one of the permitted src/dst layouts.
	ErrInvalidAddrSet = errors.New("ramses: invalid address set")

	// ErrShortPacket is returned when a packet line is too short to carry
	// the fixed-offset address and code fields.
	ErrShortPacket = errors.New("ramses: packet too short")

	// ErrSendFailed is returned when the gateway fails to put a command on
	// the wire. The transport gives no delivery guarantee beyond this.
	ErrSendFailed = errors.New("ramses: command send failed")

	// ErrInvalidSchema is returned by Gateway.Start when the supplied
	// schema cannot construct a usable client. Callers retry once with
	// their declared-only schema before giving up.
	ErrInvalidSchema = errors.New("ramses: unusable schema")

	// ErrInterfaceUnavailable is returned by Gateway.Start when the RF
	// interface itself is misconfigured. Unlike a transport failure this
	// is not retryable.
	ErrInterfaceUnavailable = errors.New("ramses: interface unavailable")
)
