package assistant

import "fmt"

// Reasons a field can fail validation.
const (
	ReasonMissing = "missing"
	ReasonInvalid = "invalid"
	ReasonPast    = "past"
)

// ValidationError means the caller has to ask the customer for a field again.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func missing(field string) error { return &ValidationError{Field: field, Reason: ReasonMissing} }
func invalid(field string) error { return &ValidationError{Field: field, Reason: ReasonInvalid} }

// UnknownServiceError is returned when a service name matches nothing in the catalog.
type UnknownServiceError struct {
	Name string
}

func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("unknown service %q", e.Name)
}
