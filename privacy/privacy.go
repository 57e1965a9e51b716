package privacy

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/syssam/tablekit"
	"github.com/syssam/tablekit/dialect/sql/sqlgen"
)

// Policy decision sentinel errors.
//
// Rules return these to tell the policy how evaluation proceeds. Use
// errors.Is to check for them:
//
//	if errors.Is(err, privacy.Deny) { ... }
var (
	// Allow terminates evaluation with an allow decision.
	Allow = errors.New("privacy: allow rule")

	// Deny terminates evaluation with a deny decision. The statement is
	// rejected before any value is bound.
	Deny = errors.New("privacy: deny rule")

	// Skip abstains. Evaluation continues with the next rule.
	Skip = errors.New("privacy: skip rule")
)

// Allowf returns a formatted error wrapping Allow.
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted error wrapping Deny.
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted error wrapping Skip.
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// Rule decides whether a statement on entity T may run.
//
// The input is the one the model hands to PreBind hooks: the row for
// create, update, upsert and delete, the primary key for reads and
// deletes by key, and nothing for statements over the whole table.
type Rule[T, K any] interface {
	Eval(ctx context.Context, q *sqlgen.Query[T], in *tablekit.Input[T, K]) error
}

// RuleFunc is the function form of Rule.
type RuleFunc[T, K any] func(ctx context.Context, q *sqlgen.Query[T], in *tablekit.Input[T, K]) error

// Eval calls f(ctx, q, in).
func (f RuleFunc[T, K]) Eval(ctx context.Context, q *sqlgen.Query[T], in *tablekit.Input[T, K]) error {
	return f(ctx, q, in)
}

// AlwaysAllowRule returns a rule that always allows.
func AlwaysAllowRule[T, K any]() Rule[T, K] {
	return fixedDecision[T, K]{Allow}
}

// AlwaysDenyRule returns a rule that always denies.
func AlwaysDenyRule[T, K any]() Rule[T, K] {
	return fixedDecision[T, K]{Deny}
}

// ContextRule returns a rule deciding from the context alone.
func ContextRule[T, K any](eval func(context.Context) error) Rule[T, K] {
	return RuleFunc[T, K](func(ctx context.Context, _ *sqlgen.Query[T], _ *tablekit.Input[T, K]) error {
		return eval(ctx)
	})
}

// OnOperation evaluates rule only for statements of the given operations.
// Other statements are skipped.
func OnOperation[T, K any](rule Rule[T, K], ops ...sqlgen.Operation) Rule[T, K] {
	return RuleFunc[T, K](func(ctx context.Context, q *sqlgen.Query[T], in *tablekit.Input[T, K]) error {
		if !slices.Contains(ops, q.Op) {
			return Skip
		}
		return rule.Eval(ctx, q, in)
	})
}

// AllowOperationRule returns a rule allowing the given operations.
func AllowOperationRule[T, K any](ops ...sqlgen.Operation) Rule[T, K] {
	return OnOperation(AlwaysAllowRule[T, K](), ops...)
}

// DenyOperationRule returns a rule denying the given operations.
func DenyOperationRule[T, K any](ops ...sqlgen.Operation) Rule[T, K] {
	rule := RuleFunc[T, K](func(_ context.Context, q *sqlgen.Query[T], _ *tablekit.Input[T, K]) error {
		return Denyf("privacy: operation %s is not allowed", q.Op)
	})
	return OnOperation[T, K](rule, ops...)
}

// Policy is an ordered list of rules. The first rule returning a decision
// other than Skip ends the evaluation.
type Policy[T, K any] []Rule[T, K]

// NewPolicy returns a policy evaluating rules in order.
func NewPolicy[T, K any](rules ...Rule[T, K]) Policy[T, K] {
	return Policy[T, K](rules)
}

// Eval evaluates the policy. It returns nil when the statement is allowed,
// including when every rule skipped, and the deciding error otherwise.
// A decision attached with DecisionContext overrides the rules.
func (p Policy[T, K]) Eval(ctx context.Context, q *sqlgen.Query[T], in *tablekit.Input[T, K]) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	for _, rule := range p {
		switch decision := rule.Eval(ctx, q, in); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

// Hook returns a PreBind hook enforcing the policy on a model:
//
//	var Posts = tablekit.NewModel[Post](PostTable).WithHooks(
//	    privacy.NewPolicy(
//	        privacy.DenyIfNoViewer[Post, int64](),
//	        privacy.HasRole[Post, int64]("admin"),
//	        privacy.IsOwner[Post, int64](PostAuthorColumn),
//	        privacy.AllowOperationRule[Post, int64](sqlgen.OpSelect),
//	        privacy.AlwaysDenyRule[Post, int64](),
//	    ).Hook(),
//	)
//
// A denied statement fails with a *tablekit.HookError wrapping the
// decision, so errors.Is(err, privacy.Deny) reports it.
func (p Policy[T, K]) Hook() tablekit.Hook[T, K] {
	return tablekit.NewHook[T, K](tablekit.PreBind, p.Eval)
}

type decisionCtxKey struct{}

// DecisionContext returns a copy of parent carrying a fixed decision.
// Policies evaluated under it return the decision without running rules.
// Skip and nil leave parent unchanged.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext retrieves the decision attached to ctx. An Allow
// decision is reported as nil.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Allow) {
		decision = nil
	}
	return decision, ok
}

type fixedDecision[T, K any] struct {
	decision error
}

func (f fixedDecision[T, K]) Eval(context.Context, *sqlgen.Query[T], *tablekit.Input[T, K]) error {
	return f.decision
}
