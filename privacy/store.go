package privacy

import (
	"context"

	"github.com/syssam/tablekit"
	"github.com/syssam/tablekit/dialect"
)

// Store reads the stored rows that IsStoredOwner and StoredTenantRule judge.
// Its model should be the one without the policy hook, since a model
// cannot reference itself while it is declared:
//
//	var (
//	    basePosts = tablekit.NewModel[Post](PostTable)
//	    postStore = privacy.NewStore(basePosts, db)
//	    Posts     = basePosts.WithHooks(privacy.NewPolicy(
//	        privacy.StoredTenantRule[Post](PostTenantColumn, postStore),
//	        privacy.AlwaysDenyRule[Post, int64](),
//	    ).Hook())
//	)
//
// Lookups run on ex with an allow decision attached, so they never
// re-enter a policy.
type Store[T, K any] struct {
	model *tablekit.Model[T, K]
	ex    dialect.ExecQuerier
}

// NewStore returns a Store reading rows of m through ex.
func NewStore[T, K any](m *tablekit.Model[T, K], ex dialect.ExecQuerier) *Store[T, K] {
	return &Store[T, K]{model: m, ex: ex}
}

// find returns the stored row addressed by in, nil when none exists. It
// reports false for inputs that address no single row.
func (s *Store[T, K]) find(ctx context.Context, in *tablekit.Input[T, K]) (*T, bool, error) {
	var pk K
	switch in.Kind {
	case tablekit.InputRow:
		pk = s.model.Table().PK(in.Row)
	case tablekit.InputPrimaryKey:
		pk = *in.PK
	default:
		return nil, false, nil
	}
	row, err := s.model.Find(DecisionContext(ctx, Allow), s.ex, pk)
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}
