package cli

import "fmt"

// ExitError is an error that carries a specific process exit code. cobra's
// RunE returns this to signal the desired exit code to main, grounded on
// the teacher's cli.ExitError. The codes themselves live next to the
// command that raises them (root.go), per the teacher's run.go convention.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func exitError(code int, format string, args ...any) *ExitError {
	return &ExitError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}
