package config

import "fmt"

// ValidationError reports exactly which run configuration precondition
// was violated. Assembly failures are always fatal; the run never
// proceeds to detection or resolution.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}
