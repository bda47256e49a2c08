package reconciler

import "fmt"

// ConfigError reports a desired-state zone that is missing a field mandatory
// for its kind, or carries a field invalid for its kind. It is detected
// before any mutating call.
type ConfigError struct {
	Zone   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("zone %s: invalid configuration: %s", e.Zone, e.Reason)
}

// ValidationError reports malformed record declarations, detected while
// grouping them into record sets and before any diffing.
type ValidationError struct {
	Zone   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("zone %s: invalid records: %s", e.Zone, e.Reason)
}

// StoreError reports a failed zone store operation. It aborts the remaining
// processing of the affected zone; operations issued before the failing one
// are not undone.
type StoreError struct {
	Zone string
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Zone == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("zone %s: %s failed: %v", e.Zone, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
