package replslot

import "fmt"

// ErrorCode classifies a recoverable failure returned by a public operation.
// Fatal conditions never surface as an ErrorCode; they go through panicf.
type ErrorCode int

const (
	Unknown ErrorCode = iota
	InvalidName
	NameTooLong
	Duplicate
	NotFound
	InUse
	Capacity
	NotConfigured
	IOError
)

// Error is the error type every recoverable operation in this package
// returns. SlotName is best-effort context for logging, not an identity key.
type Error struct {
	Code     ErrorCode
	SlotName string
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("replslot: code=%d slot=%q", e.Code, e.SlotName)
	}
	return fmt.Errorf("replslot: code=%d slot=%q: %w", e.Code, e.SlotName, e.Err).Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, name string, err error) *Error {
	return &Error{Code: code, SlotName: name, Err: err}
}

// IsCode reports whether err is an *Error carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if as, ok := err.(*Error); ok {
		e = as
	} else {
		return false
	}
	return e.Code == code
}
