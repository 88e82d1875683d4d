// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is the failure recorded for a job stopped by Cancel.
	ErrCancelled = errors.New("conversion cancelled")

	// ErrUnknownJob is returned for IDs the store does not hold.
	ErrUnknownJob = errors.New("unknown job")
)

// ConfigurationError reports that a conversion could not start because the
// provider is not usable. No I/O has happened when it is returned.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ResourceError reports a failure to create or release a temporary
// directory. Release failures are logged and never fail a job.
type ResourceError struct {
	Op   string
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s temp dir: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s temp dir %s: %v", e.Op, e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }
