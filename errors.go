package tablekit

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors.
var (
	// ErrNotFound is returned when a query expected a row and got none.
	ErrNotFound = errors.New("tablekit: entity not found")

	// ErrUnknownColumn is returned when an entity is asked to bind or scan
	// a column it does not own.
	ErrUnknownColumn = errors.New("tablekit: unknown column")

	// ErrInvalidRelation is returned when a relation is declared over a
	// column that is not a foreign key into the parent table.
	ErrInvalidRelation = errors.New("tablekit: invalid relation")
)

// Kind is the top level category of a query failure.
type Kind uint8

// Failure kinds.
const (
	// KindOther covers failures no other kind describes.
	KindOther Kind = iota
	// KindIO covers transport, protocol, TLS and pool failures.
	KindIO
	// KindNotFound means a single-row fetch returned no rows.
	KindNotFound
	// KindSQL is a database error categorized by its SQLSTATE class.
	KindSQL
	// KindViolation is a unique, foreign-key or check constraint violation.
	KindViolation
	// KindInternal means the database error carried a malformed SQLSTATE.
	KindInternal
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindOther:
		return "other"
	case KindIO:
		return "io"
	case KindNotFound:
		return "not found"
	case KindSQL:
		return "sql"
	case KindViolation:
		return "violation"
	case KindInternal:
		return "internal"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// SQLClass refines KindSQL errors by SQLSTATE class.
type SQLClass uint8

// SQLSTATE classes.
const (
	ClassUnknown             SQLClass = iota
	ClassDataException                // 22
	ClassIntegrityConstraint          // 23
	ClassSyntax                       // 42
	ClassOther
)

// String implements fmt.Stringer.
func (c SQLClass) String() string {
	switch c {
	case ClassDataException:
		return "data exception"
	case ClassIntegrityConstraint:
		return "integrity constraint"
	case ClassSyntax:
		return "syntax"
	case ClassOther:
		return "other"
	default:
		return "unknown"
	}
}

// Violation refines KindViolation errors.
type Violation uint8

// Constraint violations.
const (
	ViolationNone Violation = iota
	ViolationUnique
	ViolationForeignKey
	ViolationCheck
)

// String implements fmt.Stringer.
func (v Violation) String() string {
	switch v {
	case ViolationUnique:
		return "unique"
	case ViolationForeignKey:
		return "foreign key"
	case ViolationCheck:
		return "check"
	default:
		return "none"
	}
}

// QueryError is a classified execution failure. It wraps the driver error.
type QueryError struct {
	Kind      Kind
	Class     SQLClass  // set when Kind is KindSQL
	Violation Violation // set when Kind is KindViolation
	Code      string    // SQLSTATE, when the driver reported one
	Op        string    // statement operation, when known
	Table     string    // table the statement ran against, when known
	Err       error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	var b strings.Builder
	b.WriteString("tablekit: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		if e.Table != "" {
			b.WriteString(" ")
			b.WriteString(e.Table)
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	switch e.Kind {
	case KindSQL:
		b.WriteString(" (" + e.Class.String() + ")")
	case KindViolation:
		b.WriteString(" (" + e.Violation.String() + ")")
	}
	if e.Code != "" {
		b.WriteString(" [" + e.Code + "]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying driver error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrNotFound and the error is a not-found failure.
func (e *QueryError) Is(target error) bool {
	return target == ErrNotFound && e.Kind == KindNotFound
}

// BindError is returned by entity binders for columns they do not own.
type BindError struct {
	Column string
}

// Error implements the error interface.
func (e *BindError) Error() string {
	return fmt.Sprintf("tablekit: unknown column %q", e.Column)
}

// Is reports whether target is ErrUnknownColumn.
func (e *BindError) Is(target error) bool {
	return target == ErrUnknownColumn
}

// UnknownColumn returns the error entity binders report for a column
// outside their table.
func UnknownColumn(field string) error {
	return &BindError{Column: field}
}

// HookError wraps an error returned by a hook.
type HookError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *HookError) Error() string {
	return fmt.Sprintf("tablekit: %s hook: %v", e.Stage, e.Err)
}

// Unwrap returns the hook's error.
func (e *HookError) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err. Errors that were never
// classified report KindOther.
func KindOf(err error) Kind {
	var e *QueryError
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

// IsNotFound returns true if err reports a missing row.
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrNotFound)
}

// IsIO returns true if err is a transport level failure.
func IsIO(err error) bool {
	return err != nil && KindOf(err) == KindIO
}

// IsSQL returns true if err is a database error categorized by SQLSTATE class.
func IsSQL(err error) bool {
	return err != nil && KindOf(err) == KindSQL
}

// IsInternal returns true if the database reported a malformed SQLSTATE.
func IsInternal(err error) bool {
	return err != nil && KindOf(err) == KindInternal
}

// IsViolation returns true if err is any constraint violation.
func IsViolation(err error) bool {
	return violationOf(err) != ViolationNone
}

// IsUniqueViolation returns true if err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return violationOf(err) == ViolationUnique
}

// IsForeignKeyViolation returns true if err is a foreign key constraint violation.
func IsForeignKeyViolation(err error) bool {
	return violationOf(err) == ViolationForeignKey
}

// IsCheckViolation returns true if err is a check constraint violation.
func IsCheckViolation(err error) bool {
	return violationOf(err) == ViolationCheck
}

// IsUnknownColumn returns true if err reports a column outside the entity's table.
func IsUnknownColumn(err error) bool {
	return err != nil && errors.Is(err, ErrUnknownColumn)
}

func violationOf(err error) Violation {
	var e *QueryError
	if err == nil || !errors.As(err, &e) || e.Kind != KindViolation {
		return ViolationNone
	}
	return e.Violation
}
