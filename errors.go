package orma

import (
	"errors"
	"fmt"
	"strings"
)

// Standard errors.
var (
	// ErrTxDone is returned when committing or rolling back a transaction
	// that already reached a terminal state.
	ErrTxDone = errors.New("orma: transaction has already been committed or rolled back")

	// ErrTxReused is returned when a caller that received a transaction in
	// reuse mode attempts to finalize it. Finalization belongs to the creator.
	ErrTxReused = errors.New("orma: reused transaction cannot be committed or rolled back by a nested caller")

	// ErrNoConnection is returned when a statement is issued on a
	// transaction whose environment was never prepared.
	ErrNoConnection = errors.New("orma: transaction is not bound to a connection")
)

// UnknownOptionError is returned when an operation receives an option key
// it does not recognize for any dialect.
type UnknownOptionError struct {
	Operation string
	Dialect   string
	Option    string
}

// Error returns the error string.
func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("orma: unknown option %q for %s (dialect %s)", e.Option, e.Operation, e.Dialect)
}

// IsUnknownOption returns true if the error is an UnknownOptionError.
func IsUnknownOption(err error) bool {
	if err == nil {
		return false
	}
	var e *UnknownOptionError
	return errors.As(err, &e)
}

// DialectNotSupportedError is returned when a recognized option is not
// implemented by the active dialect.
type DialectNotSupportedError struct {
	Operation string
	Dialect   string
	Option    string
}

// Error returns the error string.
func (e *DialectNotSupportedError) Error() string {
	return fmt.Sprintf("orma: option %q of %s is not supported by dialect %s", e.Option, e.Operation, e.Dialect)
}

// IsDialectNotSupported returns true if the error is a DialectNotSupportedError.
func IsDialectNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var e *DialectNotSupportedError
	return errors.As(err, &e)
}

// TransactionCompatibilityError is returned when the ambient transaction
// cannot serve a request because its options differ.
type TransactionCompatibilityError struct {
	Option    string // e.g. "isolation", "read_only"
	Requested string
	Existing  string
}

// Error returns the error string.
func (e *TransactionCompatibilityError) Error() string {
	return fmt.Sprintf("orma: requested %s %q is incompatible with the active transaction (%s %q)",
		e.Option, e.Requested, e.Option, e.Existing)
}

// IsTransactionCompatibility returns true if the error is a TransactionCompatibilityError.
func IsTransactionCompatibility(err error) bool {
	if err == nil {
		return false
	}
	var e *TransactionCompatibilityError
	return errors.As(err, &e)
}

// CyclicDependencyError is returned by bulk table operations when the
// foreign key graph of the registered models contains a cycle and no
// override was requested.
type CyclicDependencyError struct {
	Operation string
	Models    []string // models participating in (or blocked by) the cycle
}

// Error returns the error string.
func (e *CyclicDependencyError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "orma: %s: foreign key dependencies between models are cyclic", e.Operation)
	if len(e.Models) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(e.Models, ", "))
	}
	sb.WriteString("; pass cascade or withoutForeignKeyChecks to proceed")
	return sb.String()
}

// IsCyclicDependency returns true if the error is a CyclicDependencyError.
func IsCyclicDependency(err error) bool {
	if err == nil {
		return false
	}
	var e *CyclicDependencyError
	return errors.As(err, &e)
}

// UnsupportedFeatureError is returned when the backend lacks a capability
// an operation requires.
type UnsupportedFeatureError struct {
	Dialect   string
	Feature   string
	Operation string
}

// Error returns the error string.
func (e *UnsupportedFeatureError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("orma: %s: dialect %s does not support %s", e.Operation, e.Dialect, e.Feature)
	}
	return fmt.Sprintf("orma: dialect %s does not support %s", e.Dialect, e.Feature)
}

// IsUnsupportedFeature returns true if the error is an UnsupportedFeatureError.
func IsUnsupportedFeature(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedFeatureError
	return errors.As(err, &e)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err   error // Rollback failure
	Cause error // Error that triggered the rollback, if any
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("orma: rollback failed: %v (rolling back after: %v)", e.Err, e.Cause)
	}
	return fmt.Sprintf("orma: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "orma: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("orma: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors so errors.Is/As can inspect each.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
