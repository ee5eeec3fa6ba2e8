package spatialmath

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigurationError is returned when a shape, transform or option is rejected at construction time.
// Values that produce it are never created.
type ConfigurationError struct {
	Subject string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Subject, e.Reason)
}

// NewConfigurationError returns a ConfigurationError for the given subject.
func NewConfigurationError(subject, format string, args ...interface{}) error {
	return &ConfigurationError{Subject: subject, Reason: fmt.Sprintf(format, args...)}
}

// NewBadGeometryDimensionsError is used when a shape is constructed with non-positive or non-finite dimensions.
func NewBadGeometryDimensionsError(subject string) error {
	return &ConfigurationError{Subject: subject, Reason: "dimensions must be positive and finite"}
}

// NewNonFinitePoseError is used when a pose containing NaN or infinite values is supplied.
func NewNonFinitePoseError() error {
	return &ConfigurationError{Subject: "pose", Reason: "translation and rotation must be finite"}
}

// IsConfigurationError reports whether err (or anything it wraps) is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
