package tablekit

import (
	"errors"

	"github.com/syssam/tablekit/dialect/sql/sqlstate"
)

// Classify maps a driver error onto the failure taxonomy. It returns nil
// for nil and returns errors that are already classified unchanged.
//
// The checks run in a fixed order: missing rows, transport failures,
// constraint violations, then the SQLSTATE class. A database error whose
// code is shorter than five characters is KindInternal; one without any
// code, like every unrecognized error, is KindOther.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var e *QueryError
	if errors.As(err, &e) {
		return err
	}
	return classify(err)
}

func classify(err error) *QueryError {
	e := &QueryError{Kind: KindOther, Err: err}
	switch {
	case sqlstate.IsNoRows(err):
		e.Kind = KindNotFound
		return e
	case sqlstate.IsConnection(err):
		e.Kind = KindIO
		return e
	}
	code, ok := sqlstate.Code(err)
	if ok {
		e.Code = code
	}
	switch {
	case sqlstate.IsUnique(err):
		e.Kind, e.Violation = KindViolation, ViolationUnique
		return e
	case sqlstate.IsForeignKey(err):
		e.Kind, e.Violation = KindViolation, ViolationForeignKey
		return e
	case sqlstate.IsCheck(err):
		e.Kind, e.Violation = KindViolation, ViolationCheck
		return e
	}
	if !ok {
		return e
	}
	if len(code) < 5 {
		e.Kind = KindInternal
		return e
	}
	e.Kind = KindSQL
	switch code[:2] {
	case sqlstate.ClassDataException:
		e.Class = ClassDataException
	case sqlstate.ClassIntegrityConstraint:
		e.Class = ClassIntegrityConstraint
	case sqlstate.ClassSyntax:
		e.Class = ClassSyntax
	default:
		e.Class = ClassOther
	}
	return e
}

// wrapErr classifies err and annotates it with the statement that failed.
func wrapErr(err error, op, table string) error {
	if err == nil {
		return nil
	}
	var e *QueryError
	if errors.As(err, &e) {
		return err
	}
	e = classify(err)
	e.Op, e.Table = op, table
	return e
}
