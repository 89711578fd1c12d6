package engine

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// RuntimeError represents an error detected while evaluating a plan.
//
// Runtime errors include:
//   - Binding errors: a context lookup found no value, or a value of the wrong type
//   - Unbound parameters: a parameter with no binding reached evaluation
//   - Unsupported operators: an operator with no evaluation semantics
//   - Evaluation failures: bad data, bad indexes, unknown data sets
//
// RuntimeError includes structured fields for diagnostics. The executor
// classifies failures by matching substrings of Error(), so the format is
// stable.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Operator names the operator being evaluated, when known.
	Operator string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeBindingMissing indicates a context lookup for a name never set.
	ErrCodeBindingMissing RuntimeErrorCode = "BINDING_MISSING"

	// ErrCodeBindingType indicates a context value not assignable to the requested type.
	ErrCodeBindingType RuntimeErrorCode = "BINDING_TYPE"

	// ErrCodeEvaluationFailed indicates the plan could not be evaluated over the data.
	ErrCodeEvaluationFailed RuntimeErrorCode = "EVALUATION_FAILED"

	// ErrCodeUnboundParameter indicates a parameter that nothing binds at run time.
	ErrCodeUnboundParameter RuntimeErrorCode = "UNBOUND_PARAMETER"

	// ErrCodeUnsupportedOperator indicates an operator the interpreter cannot evaluate.
	ErrCodeUnsupportedOperator RuntimeErrorCode = "UNSUPPORTED_OPERATOR"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Operator != "" {
		fmt.Fprintf(&b, " (operator=%s)", e.Operator)
	}
	for _, k := range slices.Sorted(maps.Keys(e.Details)) {
		fmt.Fprintf(&b, " %s=%s", k, e.Details[k])
	}
	return b.String()
}

// IsBindingError returns true if the error is a missing or mistyped context
// binding. Uses errors.As to handle wrapped errors.
func IsBindingError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeBindingMissing || re.Code == ErrCodeBindingType
	}
	return false
}

// IsRuntimeError returns true if err is or wraps a RuntimeError.
func IsRuntimeError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re)
}

// NewBindingMissingError creates a RuntimeError for a lookup of a name that
// was never set.
func NewBindingMissingError(name string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeBindingMissing,
		Message: "no value bound in query context",
		Details: map[string]string{"name": name},
	}
}

// NewBindingTypeError creates a RuntimeError for a bound value that does not
// fit the requested type.
func NewBindingTypeError(name, want string, got any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeBindingType,
		Message: fmt.Sprintf("bound value %v is not assignable to %s", got, want),
		Details: map[string]string{"name": name},
	}
}

func evaluationError(op, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeEvaluationFailed,
		Message:  fmt.Sprintf(format, args...),
		Operator: op,
	}
}

// NewUnknownSetError creates a RuntimeError for a data set no source holds.
// DataSource implementations outside this package report missing sets with it.
func NewUnknownSetError(set string) *RuntimeError {
	return evaluationError("", "unknown data set %q", set)
}
