package dberr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEachErrorTypeMatchesItsSentinel(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"parse", &ParseError{Line: 1, Col: 2, Message: "bad"}, ErrParse},
		{"name resolution", &NameResolutionError{Kind: "table", Name: "t"}, ErrNameResolution},
		{"type", &TypeError{Message: "bad"}, ErrType},
		{"constraint", &ConstraintError{Constraint: "pk", Message: "dup"}, ErrConstraint},
		{"io", &IOError{Op: "read", Path: "x", Err: errors.New("boom")}, ErrIO},
		{"transaction", &TransactionError{Message: "no active txn"}, ErrTransaction},
		{"internal", &InternalError{Message: "unreachable"}, ErrInternal},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.ErrorIs(t, c.err, c.want)
		})
	}
}

func TestNameResolutionErrorAlsoMatchesNotFound(t *testing.T) {
	err := &NameResolutionError{Kind: "column", Name: "x"}
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIOErrorUnwrapsToUnderlyingCause(t *testing.T) {
	cause := errors.New("disk full")
	err := &IOError{Op: "write", Path: "p", Err: cause}
	assert.ErrorIs(t, err, cause)
}

func TestInternalErrorWithoutUnderlyingErrStillMatchesSentinel(t *testing.T) {
	err := &InternalError{Message: "oops"}
	assert.ErrorIs(t, err, ErrInternal)
	assert.Nil(t, err.Unwrap())
}

func TestErrorMessagesIncludeContext(t *testing.T) {
	err := &NameResolutionError{Kind: "table", Name: "ghosts"}
	assert.Contains(t, err.Error(), "ghosts")

	pe := &ParseError{Line: 3, Col: 7, Message: "unexpected token"}
	assert.Contains(t, pe.Error(), "3:7")
}

func TestWrapfPreservesErrorsIs(t *testing.T) {
	base := &ConstraintError{Constraint: "unique_email", Message: "duplicate"}
	wrapped := Wrapf(base, "inserting row")
	assert.ErrorIs(t, wrapped, ErrConstraint)
	assert.ErrorIs(t, wrapped, base)
}
