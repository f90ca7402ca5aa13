package manager

import (
	"errors"
	"fmt"
	"time"

	"github.com/zosbridge/commongo/pkg/rescapabilities"
)

// Standard manager errors
var (
	// ErrInvalidConfiguration is returned when the configuration is invalid
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrConnectionFailed is returned when a connection attempt fails
	ErrConnectionFailed = errors.New("connection failed")

	// ErrNotConnected is returned when an operation is attempted before Connect
	ErrNotConnected = errors.New("not connected")

	// ErrOperationFailed is returned when a data operation fails
	ErrOperationFailed = errors.New("operation failed")

	// ErrTimeout is returned when an external invocation exceeds its bound
	ErrTimeout = errors.New("operation timed out")

	// ErrAdapterNotAvailable is returned when a requested backend's native
	// dependency is not compiled in
	ErrAdapterNotAvailable = errors.New("adapter not available")
)

// ResourceError wraps backend-specific operation failures with the resource
// kind and operation name, keeping a consistent error shape across backends.
type ResourceError struct {
	Kind      rescapabilities.ResourceKind
	Operation string
	Cause     error
	Context   map[string]interface{}
}

// Error implements the error interface.
func (e *ResourceError) Error() string {
	if len(e.Context) > 0 {
		return fmt.Sprintf("[%s] %s: %v (context: %v)", e.Kind, e.Operation, e.Cause, e.Context)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Operation, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ResourceError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error. A ResourceError counts as
// ErrOperationFailed unless its cause is one of the more specific sentinels
// (not-connected, timeout), which keep their own kind.
func (e *ResourceError) Is(target error) bool {
	if errors.Is(e.Cause, target) {
		return true
	}
	if errors.Is(target, ErrOperationFailed) {
		return !errors.Is(e.Cause, ErrNotConnected) && !errors.Is(e.Cause, ErrTimeout)
	}
	return false
}

// NewResourceError creates a new ResourceError.
func NewResourceError(kind rescapabilities.ResourceKind, operation string, cause error) *ResourceError {
	return &ResourceError{
		Kind:      kind,
		Operation: operation,
		Cause:     cause,
	}
}

// WithContext adds context to a ResourceError.
func (e *ResourceError) WithContext(key string, value interface{}) *ResourceError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// ConnectionError is returned when connecting to or disconnecting from a
// resource fails.
type ConnectionError struct {
	Kind  rescapabilities.ResourceKind
	Host  string
	Port  int
	Cause error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s at %s:%d: %v", e.Kind, e.Host, e.Port, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is ErrConnectionFailed.
func (e *ConnectionError) Is(target error) bool {
	if errors.Is(target, ErrConnectionFailed) {
		return true
	}
	return errors.Is(e.Cause, target)
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(kind rescapabilities.ResourceKind, host string, port int, cause error) *ConnectionError {
	return &ConnectionError{
		Kind:  kind,
		Host:  host,
		Port:  port,
		Cause: cause,
	}
}

// ConfigurationError is returned by the factory, before any connection
// attempt, for an invalid implementation selector or a missing dependency.
type ConfigurationError struct {
	Kind   rescapabilities.ResourceKind
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid configuration for %s: field '%s': %s", e.Kind, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid configuration for %s: %s", e.Kind, e.Reason)
}

// Is checks if the error is ErrInvalidConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return errors.Is(target, ErrInvalidConfiguration)
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(kind rescapabilities.ResourceKind, field, reason string) *ConfigurationError {
	return &ConfigurationError{
		Kind:   kind,
		Field:  field,
		Reason: reason,
	}
}

// TimeoutError is returned when an external tool invocation exceeds its
// configured bound. It is distinct from a generic operation failure so
// callers can tell "the tool was slow" from "the tool said no".
type TimeoutError struct {
	Kind    rescapabilities.ResourceKind
	Command string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("[%s] command %q exceeded its %s timeout", e.Kind, e.Command, e.Timeout)
}

// Is checks if the error is ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return errors.Is(target, ErrTimeout)
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(kind rescapabilities.ResourceKind, command string, timeout time.Duration) *TimeoutError {
	return &TimeoutError{
		Kind:    kind,
		Command: command,
		Timeout: timeout,
	}
}

// WrapError wraps an error with resource context.
// If the error is already a ResourceError or TimeoutError, it returns it as-is.
func WrapError(kind rescapabilities.ResourceKind, operation string, err error) error {
	if err == nil {
		return nil
	}

	// Don't double-wrap
	var resErr *ResourceError
	if errors.As(err, &resErr) {
		return err
	}
	var toErr *TimeoutError
	if errors.As(err, &toErr) {
		return err
	}

	return NewResourceError(kind, operation, err)
}

// NotConnected builds the canonical refusal for an operation attempted on a
// disconnected manager.
func NotConnected(kind rescapabilities.ResourceKind, operation string) error {
	return NewResourceError(kind, operation, ErrNotConnected)
}

// IsNotConnected checks if an error indicates a missing connection.
func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsConfigurationError checks if an error is a configuration error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}
