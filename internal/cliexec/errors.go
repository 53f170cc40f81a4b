// internal/cliexec/errors.go
package cliexec

import "fmt"

// ResourceError reports temp-file or workspace I/O failures that
// prevent a run from starting or completing.
type ResourceError struct {
	Op   string
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// Code returns the stable error code for this error kind.
func (e *ResourceError) Code() string {
	return "RESOURCE_ERROR"
}
