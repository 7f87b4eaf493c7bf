package runtrigger

import "fmt"

// ValidationError signals that the request body failed shape or semantic
// validation before any persistence was attempted.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// StatusCode lets an HTTP layer map this error without importing net/http.
func (e *ValidationError) StatusCode() int { return 400 }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// OutOfEntitlementError signals the organization has no remaining run
// allowance. Distinct from ValidationError because the request itself is
// well-formed.
type OutOfEntitlementError struct {
	OrganizationID string
}

func (e *OutOfEntitlementError) Error() string {
	return fmt.Sprintf("organization %s is out of entitlement", e.OrganizationID)
}

func (e *OutOfEntitlementError) StatusCode() int { return 402 }

// ErrorCode returns the taxonomy code spec.md §7 assigns to err, or
// "INTERNAL_ERROR" for anything unrecognized.
func ErrorCode(err error) string {
	switch err.(type) {
	case *ValidationError:
		return "VALIDATION_ERROR"
	case *OutOfEntitlementError:
		return "OUT_OF_ENTITLEMENT"
	default:
		return "INTERNAL_ERROR"
	}
}

// terminalError unifies the two "cannot attach to a finished parent" checks
// in the dependency resolver (C4): one for a dependent attempt, one for that
// attempt's run. kind names which of the two is terminal.
func terminalError(kind, status string) error {
	return validationErrorf("cannot trigger a run with a %s in a terminal state (%s)", kind, status)
}
