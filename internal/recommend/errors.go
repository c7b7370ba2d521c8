package recommend

import "fmt"

// ErrNotFound is returned when a user, job or recommendation is missing or
// does not belong to the caller.
var ErrNotFound = fmt.Errorf("not found")

// ValidationError wraps a user-facing validation message. It is rejected
// at the boundary before any persistence happens.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }
