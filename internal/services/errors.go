package services

import "fmt"

// ValidationError : entrée malformée ou incomplète, rejetée avant tout effet
// de bord. Les handlers la mappent sur un 400.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func invalidf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
