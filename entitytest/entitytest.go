// Package entitytest verifies the data-access operations of a model
// against a live database.
//
//	func TestForest(t *testing.T) {
//		drv := openTestDB(t)
//		entitytest.Create(t, drv, Forests, &Forest{ID: 1, Name: "Black Forest"})
//		entitytest.Update(t, drv, Forests, &Forest{ID: 2, Name: "a"},
//			&Forest{ID: 2, Name: "b"},
//			&Forest{ID: 2, Name: "c"},
//		)
//		entitytest.Delete(t, drv, Forests, &Forest{ID: 3, Name: "Sherwood"})
//	}
//
// Entities are compared with require.Equal, so every column must survive
// a round trip unchanged.
package entitytest

import (
	"testing"

	"github.com/syssam/tablekit"
	"github.com/syssam/tablekit/dialect"

	"github.com/stretchr/testify/require"
)

// Create asserts that v does not exist yet, creates it, and reads back an
// equal entity.
func Create[T, K any](t testing.TB, ex dialect.ExecQuerier, m *tablekit.Model[T, K], v *T) {
	t.Helper()
	ctx := t.Context()
	pk := m.Table().PK(v)
	found, err := m.Find(ctx, ex, pk)
	require.NoError(t, err)
	require.Nil(t, found, "entity was found before it was created")

	_, err = m.Create(ctx, ex, v)
	require.NoError(t, err, "create")

	got, err := m.Find(ctx, ex, pk)
	require.NoError(t, err)
	require.NotNil(t, got, "entity not found after create")
	require.Equal(t, v, got)
}

// Read asserts that v is read back unchanged after creation, by primary
// key and through the full table scan.
func Read[T, K any](t testing.TB, ex dialect.ExecQuerier, m *tablekit.Model[T, K], v *T) {
	t.Helper()
	Create(t, ex, m, v)
	ctx := t.Context()

	got, err := m.Read(ctx, ex, m.Table().PK(v))
	require.NoError(t, err)
	require.Equal(t, v, got)

	all, err := m.ReadAll(ctx, ex)
	require.NoError(t, err)
	require.Contains(t, all, v)
}

// Update upserts v, then applies every update in turn. After each update
// reloading v must yield the update.
func Update[T, K any](t testing.TB, ex dialect.ExecQuerier, m *tablekit.Model[T, K], v *T, updates ...*T) {
	t.Helper()
	ctx := t.Context()
	_, err := m.Upsert(ctx, ex, v)
	require.NoError(t, err, "upsert")

	for _, u := range updates {
		_, err := m.Update(ctx, ex, u)
		require.NoError(t, err, "update")
		require.NoError(t, m.Reload(ctx, ex, v), "reload")
		require.Equal(t, u, v)

		got, err := m.Find(ctx, ex, m.Table().PK(v))
		require.NoError(t, err)
		require.NotNil(t, got, "entity not found after update")
		require.Equal(t, v, got)
	}
}

// Delete creates v, deletes it, and asserts it is gone. It then repeats
// the cycle deleting by primary key.
func Delete[T, K any](t testing.TB, ex dialect.ExecQuerier, m *tablekit.Model[T, K], v *T) {
	t.Helper()
	ctx := t.Context()
	pk := m.Table().PK(v)

	_, err := m.Create(ctx, ex, v)
	require.NoError(t, err, "create")
	_, err = m.Delete(ctx, ex, v)
	require.NoError(t, err, "delete")
	reload := *v
	err = m.Reload(ctx, ex, &reload)
	require.Error(t, err, "entity could be reloaded after delete")
	require.True(t, tablekit.IsNotFound(err), "reload: %v", err)
	found, err := m.Find(ctx, ex, pk)
	require.NoError(t, err)
	require.Nil(t, found, "entity was found after delete")

	_, err = m.Create(ctx, ex, v)
	require.NoError(t, err, "create")
	_, err = m.DeleteByKey(ctx, ex, pk)
	require.NoError(t, err, "delete by key")
	reload = *v
	require.Error(t, m.Reload(ctx, ex, &reload), "entity could be reloaded after delete by key")
}
