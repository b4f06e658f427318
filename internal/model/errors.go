package model

import "fmt"

// FieldError reports a validation failure on a single request field. The
// display layer uses Field to highlight the offending input.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("model: invalid %s: %s", e.Field, e.Reason)
}
