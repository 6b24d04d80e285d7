package billing

import "fmt"

// Validation failure reasons.
const (
	ReasonMissingField     = "missing field"
	ReasonInvalidQuantity  = "invalid quantity"
	ReasonNegativeQuantity = "negative quantity"
	ReasonUnknownSector    = "unknown sector"
)

// ValidationError reports incomplete or malformed bill input. No amounts are
// computed when it is returned.
type ValidationError struct {
	Reason string
	Field  string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Field)
}

func (e *ValidationError) Unwrap() error { return e.Err }
