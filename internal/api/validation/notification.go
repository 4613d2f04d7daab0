package validation

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// maxDecrement bounds a single optimistic decrement.
const maxDecrement = 10000

// DecrementRequest mirrors the fields needed for decrement validation.
// A nil N means "by one".
type DecrementRequest struct {
	N *int
}

// ValidateDecrementRequest validates the fields of a decrement request.
func ValidateDecrementRequest(req DecrementRequest) []FieldError {
	var errs []FieldError

	if req.N != nil {
		if *req.N < 1 {
			errs = append(errs, FieldError{Field: "n", Message: "n must be at least 1"})
		} else if *req.N > maxDecrement {
			errs = append(errs, FieldError{Field: "n", Message: "n must be at most 10000"})
		}
	}

	return errs
}
