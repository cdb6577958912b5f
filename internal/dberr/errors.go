// Package dberr defines the error taxonomy shared by every layer of the
// engine: parsing, name resolution, typing, constraint checking, I/O,
// transactions and internal invariant failures. Every exported error type
// wraps an underlying cause (when there is one) and supports errors.Is
// against the package-level sentinels below.
package dberr

import (
	"errors"
	"fmt"
)

// Sentinels usable with errors.Is. Each concrete error type's Is method
// matches against the sentinel that names its category.
var (
	ErrParse          = errors.New("parse error")
	ErrNameResolution = errors.New("name resolution error")
	ErrType           = errors.New("type error")
	ErrConstraint     = errors.New("constraint violation")
	ErrIO             = errors.New("storage I/O error")
	ErrTransaction    = errors.New("transaction error")
	ErrInternal       = errors.New("internal error")

	// ErrNotFound is a finer-grained sentinel usable alongside the
	// category sentinels above, e.g. errors.Is(err, dberr.ErrNotFound).
	ErrNotFound = errors.New("not found")
)

// ParseError reports a lexing or parsing failure at a specific position.
type ParseError struct {
	Line    int
	Col     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Col, e.Message)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// NameResolutionError reports a reference to a table, column or index
// that does not exist in the catalog.
type NameResolutionError struct {
	Kind string // "table", "column", "index", "database"
	Name string
}

func (e *NameResolutionError) Error() string {
	return fmt.Sprintf("%s %q does not exist", e.Kind, e.Name)
}

func (e *NameResolutionError) Is(target error) bool {
	return target == ErrNameResolution || target == ErrNotFound
}

// TypeError reports an incompatible operand combination discovered during
// expression evaluation or DDL validation.
type TypeError struct {
	Message string
}

func (e *TypeError) Error() string { return "type error: " + e.Message }

func (e *TypeError) Is(target error) bool { return target == ErrType }

// ConstraintError reports a violated PRIMARY KEY, UNIQUE, NOT NULL or
// foreign-key constraint.
type ConstraintError struct {
	Constraint string
	Message    string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint %q violated: %s", e.Constraint, e.Message)
}

func (e *ConstraintError) Is(target error) bool { return target == ErrConstraint }

// IOError wraps a failure from the storage manager (short read, disk
// full, permission denied, ...).
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("storage I/O error during %s on %q: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// TransactionError reports a misuse of the transaction state machine,
// such as COMMIT with no active transaction or BEGIN while one is active.
type TransactionError struct {
	Message string
}

func (e *TransactionError) Error() string { return "transaction error: " + e.Message }

func (e *TransactionError) Is(target error) bool { return target == ErrTransaction }

// InternalError reports a violated invariant: a code path the engine
// should never reach given a well-formed plan and catalog.
type InternalError struct {
	Message string
	Err     error
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("internal error: %s: %v", e.Message, e.Err)
	}
	return "internal error: " + e.Message
}

func (e *InternalError) Unwrap() error { return e.Err }

func (e *InternalError) Is(target error) bool { return target == ErrInternal }

// Wrapf wraps err with a formatted message, preserving errors.Is/As chains.
func Wrapf(err error, format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, err)...)
}
