package ir

import (
	"errors"
	"fmt"
)

// StructuralErrorCode categorizes structural-compile errors.
type StructuralErrorCode string

const (
	// ErrCodeArityMismatch indicates an operator received the wrong number of operands.
	ErrCodeArityMismatch StructuralErrorCode = "ARITY_MISMATCH"

	// ErrCodeTypeArgumentMismatch indicates the wrong number of generic type arguments.
	ErrCodeTypeArgumentMismatch StructuralErrorCode = "TYPE_ARGUMENT_MISMATCH"

	// ErrCodeTypeMismatch indicates an operand whose type the operator cannot accept.
	ErrCodeTypeMismatch StructuralErrorCode = "TYPE_MISMATCH"

	// ErrCodeInjectionMismatch indicates parameter and value lists of different lengths.
	ErrCodeInjectionMismatch StructuralErrorCode = "INJECTION_MISMATCH"

	// ErrCodeDuplicateParameter indicates a parameter name declared twice in one marker.
	ErrCodeDuplicateParameter StructuralErrorCode = "DUPLICATE_PARAMETER"

	// ErrCodeUnknownField indicates member access to a field the type does not have.
	ErrCodeUnknownField StructuralErrorCode = "UNKNOWN_FIELD"

	// ErrCodeUnsupportedNode indicates a node kind no pass knows how to handle.
	ErrCodeUnsupportedNode StructuralErrorCode = "UNSUPPORTED_NODE"

	// ErrCodeUnboundParameter indicates a parameter with no binding lambda,
	// marker, or deferred prefix in scope.
	ErrCodeUnboundParameter StructuralErrorCode = "UNBOUND_PARAMETER"

	// ErrCodeUnknownOperator indicates an operator not in the catalogue.
	ErrCodeUnknownOperator StructuralErrorCode = "UNKNOWN_OPERATOR"
)

// StructuralError reports a violated IR invariant. It is always fatal and
// signals a defect in whatever built the tree, never bad user input.
type StructuralError struct {
	// Code identifies the error category.
	Code StructuralErrorCode

	// Message is a human-readable description.
	Message string

	// Node names the offending node kind or operator, when known.
	Node string
}

// Error implements the error interface.
func (e *StructuralError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewStructuralError creates a StructuralError with a formatted message.
func NewStructuralError(code StructuralErrorCode, node, format string, args ...any) *StructuralError {
	return &StructuralError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Node:    node,
	}
}

// IsStructuralError returns true if err is or wraps a StructuralError.
func IsStructuralError(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}
