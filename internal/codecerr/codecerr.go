// Package codecerr is the small shared error vocabulary compression
// adapters use to signal a bound violation back to the root package,
// without creating an import cycle (the root package imports each
// adapter package, so adapters cannot import the root's Error type).
package codecerr

import (
	"errors"
	"fmt"
)

type limitExceededError struct{ msg string }

func (e *limitExceededError) Error() string { return e.msg }

// LimitExceeded builds an error that IsLimitExceeded will recognize.
func LimitExceeded(format string, args ...interface{}) error {
	return &limitExceededError{msg: fmt.Sprintf(format, args...)}
}

// IsLimitExceeded reports whether err (or something it wraps) was
// constructed by LimitExceeded.
func IsLimitExceeded(err error) bool {
	var le *limitExceededError
	return errors.As(err, &le)
}
