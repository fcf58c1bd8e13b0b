package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound          = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists     = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput      = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState      = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrStateConflict     = NewDomainError("STATE_CONFLICT", "Lifecycle transition not allowed")
	ErrDependencyFailed  = NewDomainError("DEPENDENCY_FAILED", "A required peer service call failed")
	ErrTransactionFailed = NewDomainError("TRANSACTION_FAILED", "Database transaction could not be committed")
	ErrMeterRollback     = NewDomainError("METER_ROLLBACK", "Meter reading is lower than the previous reading")
	ErrNoUsageDetected   = NewDomainError("NO_USAGE_DETECTED", "No usage detected for the billing period")
)

// IsValidation reports whether the error represents invalid caller input.
// Validation failures are reported to the caller and never retried.
func IsValidation(err error) bool {
	de, ok := err.(*DomainError)
	if !ok {
		return false
	}
	switch de.Code {
	case "INVALID_INPUT", "NO_USAGE_DETECTED", "METER_ROLLBACK":
		return true
	}
	return len(de.Code) > 8 && de.Code[:8] == "INVALID_"
}

// IsRetryable reports whether the caller may safely retry the operation.
// Only dependency and transaction failures qualify.
func IsRetryable(err error) bool {
	de, ok := err.(*DomainError)
	if !ok {
		return false
	}
	return de.Code == "DEPENDENCY_FAILED" || de.Code == "TRANSACTION_FAILED"
}
