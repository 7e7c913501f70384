package domain

import "fmt"

// UnresolvableTargetError reports a target that could not be resolved to any
// network address. It ends the run without a report and is never retried.
type UnresolvableTargetError struct {
	Target string
	Err    error
}

func (e *UnresolvableTargetError) Error() string {
	return fmt.Sprintf("cannot resolve target %q: %v", e.Target, e.Err)
}

func (e *UnresolvableTargetError) Unwrap() error {
	return e.Err
}
