// Package dataloader resolves relations for many entities at once.
//
// Resolving the parent of every child one by one runs one statement per
// child. The loaders of this package fetch all of them with statements
// filtering on lists of at most BatchSize keys, and return the results in
// the order of the requested keys:
//
//	trees, _ := Trees.ReadAll(ctx, drv)
//	forests, errs := dataloader.Parents(ctx, drv, ForestTrees, trees)
//	// forests[i] is the forest of trees[i]; errs[i] is ErrNotFound when missing
//
// Keys are compared with ==, so the primary key type of the parent must
// match the Go type its foreign key column binds.
package dataloader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/tablekit"
	"github.com/syssam/tablekit/dialect"
	"github.com/syssam/tablekit/dialect/sql/sqlgen"
	"github.com/syssam/tablekit/schema"
)

// ErrNotFound is returned for keys without an entity in a batch result.
var ErrNotFound = errors.New("dataloader: entity not found")

// BatchSize is the most keys bound by one statement. Longer key lists run
// one statement per batch, staying under the parameter limits of the
// drivers (65535 on Postgres and MySQL, 32766 on SQLite).
var BatchSize = 1000

// KeyFunc extracts a key from an entity.
type KeyFunc[K comparable, V any] func(V) K

// OrderByKeys reorders values to match the order of keys. Missing values
// are zero, with ErrNotFound at the same index of the returned errors.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// GroupByKey groups values by key, preserving their relative order.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// OrderGroupsByKeys returns the group of every key, in the order of keys.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		result[i] = groups[key]
	}
	return result
}

// Load fetches the entities with the given primary keys, one statement per
// batch of keys. The result is ordered like keys; duplicated keys share the same entity.
func Load[T any, K comparable](ctx context.Context, ex dialect.ExecQuerier, m *tablekit.Model[T, K], keys []K) ([]*T, []error, error) {
	if len(keys) == 0 {
		return nil, nil, nil
	}
	t := m.Table()
	rows, err := in(ctx, ex, m, t.PrimaryKey(), unique(keys))
	if err != nil {
		return nil, nil, err
	}
	values, errs := OrderByKeys(keys, rows, t.PK)
	return values, errs, nil
}

// Parents fetches the parent of every child like Load. The result is
// ordered like children.
func Parents[C, CK any, P any, PK comparable](ctx context.Context, ex dialect.ExecQuerier, r *tablekit.Relation[C, CK, P, PK], children []*C) ([]*P, []error, error) {
	keys := make([]PK, len(children))
	for i, c := range children {
		k, err := foreignKey(r, c)
		if err != nil {
			return nil, nil, err
		}
		keys[i] = k
	}
	return Load(ctx, ex, r.Parent(), keys)
}

// Children fetches the children of every parent key, one statement per
// batch of keys. The i-th group holds the children referencing keys[i].
func Children[C, CK any, P any, PK comparable](ctx context.Context, ex dialect.ExecQuerier, r *tablekit.Relation[C, CK, P, PK], keys []PK) ([][]*C, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	rows, err := in(ctx, ex, r.Child(), r.ForeignKey(), unique(keys))
	if err != nil {
		return nil, err
	}
	groups := make(map[PK][]*C, len(keys))
	for _, c := range rows {
		k, err := foreignKey(r, c)
		if err != nil {
			return nil, err
		}
		groups[k] = append(groups[k], c)
	}
	return OrderGroupsByKeys(keys, groups), nil
}

// in selects the rows whose column c is one of values.
func in[T, K, V any](ctx context.Context, ex dialect.ExecQuerier, m *tablekit.Model[T, K], c schema.Column[T], values []V) ([]*T, error) {
	size := max(BatchSize, 1)
	var rows []*T
	for start := 0; start < len(values); start += size {
		batch, err := inBatch(ctx, ex, m, c, values[start:min(start+size, len(values))])
		if err != nil {
			return nil, err
		}
		rows = append(rows, batch...)
	}
	return rows, nil
}

func inBatch[T, K, V any](ctx context.Context, ex dialect.ExecQuerier, m *tablekit.Model[T, K], c schema.Column[T], values []V) ([]*T, error) {
	var b strings.Builder
	b.WriteString(sqlgen.SelectAll(m.Table(), sqlgen.Dialect(m.Dialect())).SQL())
	b.WriteString("WHERE ")
	b.WriteString(c.SQL())
	b.WriteString(" IN (")
	for i := range values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(dialect.Placeholder(m.Dialect(), i+1))
	}
	b.WriteString(")")
	q := m.Query(b.String())
	for _, v := range values {
		q.Bind(v)
	}
	return q.All(ctx, ex)
}

// foreignKey returns the key child binds for the relation's foreign key.
func foreignKey[C, CK, P any, PK comparable](r *tablekit.Relation[C, CK, P, PK], child *C) (PK, error) {
	var (
		args tablekit.Args
		zero PK
	)
	if err := r.Child().Bind(child, r.ForeignKey(), &args); err != nil {
		return zero, err
	}
	if len(args) != 1 {
		return zero, fmt.Errorf("dataloader: foreign key %s bound %d values", r.ForeignKey(), len(args))
	}
	k, ok := args[0].(PK)
	if !ok {
		return zero, fmt.Errorf("dataloader: foreign key %s binds %T, not %T", r.ForeignKey(), args[0], zero)
	}
	return k, nil
}

func unique[K comparable](keys []K) []K {
	seen := make(map[K]struct{}, len(keys))
	out := make([]K, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}
