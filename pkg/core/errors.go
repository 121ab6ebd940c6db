package core

// Error is a structured error carrying a stable machine-readable code
// alongside a human-readable message. Framework-level failures (bad
// configuration, address exhaustion, fail-fast violations surfaced as
// errors rather than panics) use this shape so callers can switch on
// Code instead of matching message text.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrInvalidInput = &Error{Code: "INVALID_INPUT", Message: "invalid input"}
	ErrTimeout      = &Error{Code: "TIMEOUT", Message: "operation timed out"}
)
