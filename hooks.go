package tablekit

import (
	"context"
	"fmt"

	"github.com/syssam/tablekit/dialect"
	"github.com/syssam/tablekit/dialect/sql/sqlgen"
)

// Stage is a point in the life of a statement at which hooks run.
// Every entity operation passes through PreBind, PreExec and PostExec in
// that order.
type Stage uint8

// Hook stages.
const (
	// PreBind runs before values are bound. Row inputs may be mutated.
	PreBind Stage = iota + 1
	// PreExec runs after binding, right before the statement is sent.
	PreExec
	// PostExec runs after execution, with the outcome.
	PostExec
)

// String implements fmt.Stringer.
func (s Stage) String() string {
	switch s {
	case PreBind:
		return "pre-bind"
	case PreExec:
		return "pre-exec"
	case PostExec:
		return "post-exec"
	default:
		return fmt.Sprintf("Stage(%d)", s)
	}
}

// InputKind tells which field of an Input is set.
type InputKind uint8

// Input kinds.
const (
	InputNone InputKind = iota
	InputRow
	InputPrimaryKey
	InputResult
)

// Input is the contextual data handed to a hook.
type Input[T, K any] struct {
	Kind   InputKind
	Row    *T          // InputRow
	PK     *K          // InputPrimaryKey
	Result *Outcome[T] // InputResult
}

// OutcomeKind tells which field of an Outcome is set.
type OutcomeKind uint8

// Outcome kinds.
const (
	OutcomeExec OutcomeKind = iota + 1
	OutcomeOptional
	OutcomeOne
	OutcomeMany
)

// Outcome is the result of an executed statement as seen by PostExec hooks.
type Outcome[T any] struct {
	Kind OutcomeKind
	Exec dialect.Result // OutcomeExec
	Row  *T             // OutcomeOne, or OutcomeOptional (nil when missing)
	Rows []*T           // OutcomeMany
	// Err is the classified execution error, nil on success.
	Err error
}

// Hook is an extension invoked around statement execution.
type Hook[T, K any] interface {
	// Stage returns the stage the hook runs at.
	Stage() Stage
	// Apply runs the hook. A non-nil error aborts the operation.
	Apply(ctx context.Context, q *sqlgen.Query[T], in *Input[T, K]) error
}

// HookFunc is the function form of Hook.Apply.
type HookFunc[T, K any] func(ctx context.Context, q *sqlgen.Query[T], in *Input[T, K]) error

// NewHook returns a Hook running fn at the given stage.
func NewHook[T, K any](stage Stage, fn HookFunc[T, K]) Hook[T, K] {
	return &funcHook[T, K]{stage: stage, fn: fn}
}

type funcHook[T, K any] struct {
	stage Stage
	fn    HookFunc[T, K]
}

func (h *funcHook[T, K]) Stage() Stage { return h.stage }

func (h *funcHook[T, K]) Apply(ctx context.Context, q *sqlgen.Query[T], in *Input[T, K]) error {
	return h.fn(ctx, q, in)
}

// RunHooks invokes the hooks registered for stage, in order, and stops at
// the first failure. Hooks of other stages are skipped.
func RunHooks[T, K any](ctx context.Context, hooks []Hook[T, K], stage Stage, q *sqlgen.Query[T], in *Input[T, K]) error {
	for _, h := range hooks {
		if h.Stage() != stage {
			continue
		}
		if err := h.Apply(ctx, q, in); err != nil {
			return &HookError{Stage: stage, Err: err}
		}
	}
	return nil
}
