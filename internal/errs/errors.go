package errs

import "fmt"

// ValidationError marks malformed or out-of-range input that the caller can
// correct and retry.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return e.Message
}

func Validation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError covers both a genuinely missing entity and one outside the
// caller's tenant scope. The two cases are deliberately indistinguishable.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Entity)
}

func NotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// AuthError covers bad probe tokens and invalid webhook signatures.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

func Auth(message string) *AuthError { return &AuthError{Message: message} }

// ConflictError marks a duplicate of something that must be unique, such as a
// correlation link or a dependency edge.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func Conflict(message string) *ConflictError { return &ConflictError{Message: message} }

// ChangeFreezeError rejects a production deployment while a severe incident
// is unresolved. IncidentID names the blocking incident.
type ChangeFreezeError struct {
	IncidentID string
	Severity   string
}

func (e *ChangeFreezeError) Error() string {
	return fmt.Sprintf("deployment blocked by unresolved %s incident %s", e.Severity, e.IncidentID)
}

// InternalError wraps an unexpected failure.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %v", e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

func Internal(err error) *InternalError { return &InternalError{Err: err} }
