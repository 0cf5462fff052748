package pin

import "errors"

// Errors.
var (
	ErrInvalidConnection = errors.New("connection endpoint refers to an unknown pin or node")
	ErrDatatypeMismatch  = errors.New("datatype mismatch")
	ErrPinNotFound       = errors.New("pin not found")
)
