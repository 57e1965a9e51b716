package privacy_test

import (
	"context"
	"testing"

	"github.com/syssam/tablekit"
	"github.com/syssam/tablekit/dialect"
	tksql "github.com/syssam/tablekit/dialect/sql"
	"github.com/syssam/tablekit/dialect/sql/sqlgen"
	"github.com/syssam/tablekit/privacy"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viewerContext(v privacy.Viewer) context.Context {
	return privacy.WithViewer(context.Background(), v)
}

func TestViewerContext(t *testing.T) {
	assert.Nil(t, privacy.ViewerFromContext(context.Background()))

	v := &privacy.SimpleViewer{UserID: "42", Roles: []string{"editor"}, TenantID: "acme"}
	got := privacy.ViewerFromContext(viewerContext(v))
	require.NotNil(t, got)
	assert.Equal(t, "42", got.GetID())
	assert.Equal(t, []string{"editor"}, got.GetRoles())
	assert.Equal(t, "acme", got.GetTenantID())
}

func TestDenyIfNoViewer(t *testing.T) {
	q := sqlgen.Select(postTable)
	rule := privacy.DenyIfNoViewer[post, int64]()

	err := rule.Eval(context.Background(), q, keyInput(1))
	require.ErrorIs(t, err, privacy.Deny)
	assert.Contains(t, err.Error(), "viewer required")
	assert.ErrorIs(t, rule.Eval(viewerContext(&privacy.SimpleViewer{UserID: "1"}), q, keyInput(1)), privacy.Skip)
}

func TestHasRole(t *testing.T) {
	q := sqlgen.Update(postTable)
	in := rowInput(&post{})
	tests := []struct {
		name string
		ctx  context.Context
		rule rule
		want error
	}{
		{
			name: "no viewer",
			ctx:  context.Background(),
			rule: privacy.HasRole[post, int64]("admin"),
			want: privacy.Skip,
		},
		{
			name: "role held",
			ctx:  viewerContext(&privacy.SimpleViewer{Roles: []string{"user", "admin"}}),
			rule: privacy.HasRole[post, int64]("admin"),
			want: privacy.Allow,
		},
		{
			name: "role missing",
			ctx:  viewerContext(&privacy.SimpleViewer{Roles: []string{"user"}}),
			rule: privacy.HasRole[post, int64]("admin"),
			want: privacy.Skip,
		},
		{
			name: "any role",
			ctx:  viewerContext(&privacy.SimpleViewer{Roles: []string{"moderator"}}),
			rule: privacy.HasAnyRole[post, int64]("admin", "moderator"),
			want: privacy.Allow,
		},
		{
			name: "no roles",
			ctx:  viewerContext(&privacy.SimpleViewer{}),
			rule: privacy.HasAnyRole[post, int64]("admin", "moderator"),
			want: privacy.Skip,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.rule.Eval(tt.ctx, q, in), tt.want)
		})
	}
}

func TestIsOwner(t *testing.T) {
	insert := sqlgen.Insert(postTable)
	rule := privacy.IsOwner[post, int64](postAuthorColumn)
	ctx := viewerContext(&privacy.SimpleViewer{UserID: "42"})

	assert.ErrorIs(t, rule.Eval(ctx, insert, rowInput(&post{AuthorID: "42"})), privacy.Allow)
	assert.ErrorIs(t, rule.Eval(ctx, insert, rowInput(&post{AuthorID: "7"})), privacy.Skip)
	assert.ErrorIs(t, rule.Eval(context.Background(), insert, rowInput(&post{AuthorID: "42"})), privacy.Skip)

	byID := privacy.IsOwner[post, int64](postTable.PrimaryKey())
	assert.ErrorIs(t, byID.Eval(ctx, insert, rowInput(&post{ID: 42})), privacy.Allow, "non-string values are formatted")

	// Supplied values of statements on stored rows are not trusted.
	for _, q := range []*sqlgen.Query[post]{sqlgen.Update(postTable), sqlgen.Upsert(postTable), sqlgen.Delete(postTable)} {
		assert.ErrorIs(t, rule.Eval(ctx, q, rowInput(&post{AuthorID: "42"})), privacy.Skip, q.Op.String())
	}
	assert.ErrorIs(t, rule.Eval(ctx, sqlgen.Delete(postTable), keyInput(1)), privacy.Skip)
}

func TestTenantRule(t *testing.T) {
	insert := sqlgen.Insert(postTable)
	rule := privacy.TenantRule[post, int64](postTenantColumn)
	ctx := viewerContext(&privacy.SimpleViewer{UserID: "42", TenantID: "acme"})

	assert.ErrorIs(t, rule.Eval(ctx, insert, rowInput(&post{TenantID: "acme"})), privacy.Allow)
	err := rule.Eval(ctx, insert, rowInput(&post{TenantID: "globex"}))
	require.ErrorIs(t, err, privacy.Deny)
	assert.Contains(t, err.Error(), "tenant mismatch")
	assert.ErrorIs(t, rule.Eval(viewerContext(&privacy.SimpleViewer{UserID: "42"}), insert, rowInput(&post{})), privacy.Skip)
	assert.ErrorIs(t, rule.Eval(ctx, sqlgen.Delete(postTable), rowInput(&post{TenantID: "acme"})), privacy.Skip)
	assert.ErrorIs(t, rule.Eval(ctx, sqlgen.Update(postTable), rowInput(&post{TenantID: "acme"})), privacy.Skip)

	required := privacy.TenantRequired[post, int64]()
	assert.ErrorIs(t, required.Eval(context.Background(), insert, rowInput(&post{})), privacy.Deny)
	err = required.Eval(viewerContext(&privacy.SimpleViewer{UserID: "42"}), insert, rowInput(&post{}))
	require.ErrorIs(t, err, privacy.Deny)
	assert.Contains(t, err.Error(), "tenant required")
	assert.ErrorIs(t, required.Eval(ctx, insert, rowInput(&post{})), privacy.Skip)
}

var postColumns = []string{"id", "author_id", "tenant_id", "title"}

func mockDriver(t *testing.T) (*tksql.Driver, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return tksql.OpenDB(dialect.Postgres, db), mock
}

func expectStored(mock sqlmock.Sqlmock, p *post) {
	rows := sqlmock.NewRows(postColumns)
	if p != nil {
		rows.AddRow(p.ID, p.AuthorID, p.TenantID, p.Title)
	}
	mock.ExpectQuery(`SELECT .* FROM "public"."posts" WHERE id = \$1`).WithArgs(int64(1)).WillReturnRows(rows)
}

func TestStoredTenantRule(t *testing.T) {
	drv, mock := mockDriver(t)
	base := tablekit.NewModel[post](postTable)
	posts := base.WithHooks(privacy.NewPolicy(
		privacy.StoredTenantRule[post](postTenantColumn, privacy.NewStore(base, drv)),
		privacy.AlwaysDenyRule[post, int64](),
	).Hook())
	attacker := viewerContext(&privacy.SimpleViewer{UserID: "7", TenantID: "attacker"})
	victim := &post{ID: 1, AuthorID: "42", TenantID: "victim", Title: "secret"}

	t.Run("delete of another tenant's row", func(t *testing.T) {
		expectStored(mock, victim)
		_, err := posts.Delete(attacker, drv, &post{ID: 1, TenantID: "attacker"})
		require.ErrorIs(t, err, privacy.Deny)
		assert.Contains(t, err.Error(), "tenant mismatch")
	})

	t.Run("update of another tenant's row", func(t *testing.T) {
		expectStored(mock, victim)
		_, err := posts.Update(attacker, drv, &post{ID: 1, TenantID: "attacker", Title: "pwned"})
		require.ErrorIs(t, err, privacy.Deny)
	})

	t.Run("read by key of another tenant's row", func(t *testing.T) {
		expectStored(mock, victim)
		_, err := posts.Find(attacker, drv, 1)
		require.ErrorIs(t, err, privacy.Deny)
	})

	t.Run("moving a row to another tenant", func(t *testing.T) {
		expectStored(mock, &post{ID: 1, TenantID: "attacker"})
		_, err := posts.Update(attacker, drv, &post{ID: 1, TenantID: "victim"})
		require.ErrorIs(t, err, privacy.Deny)
	})

	t.Run("whole table", func(t *testing.T) {
		_, err := posts.ReadAll(attacker, drv)
		require.ErrorIs(t, err, privacy.Deny)
		assert.Contains(t, err.Error(), "not scoped to a tenant")
	})

	t.Run("own rows", func(t *testing.T) {
		own := &post{ID: 1, AuthorID: "7", TenantID: "attacker"}
		expectStored(mock, own)
		mock.ExpectExec(`DELETE FROM "public"."posts"`).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
		_, err := posts.Delete(attacker, drv, own)
		require.NoError(t, err)

		mock.ExpectExec(`INSERT INTO "public"."posts"`).WillReturnResult(sqlmock.NewResult(0, 1))
		_, err = posts.Create(attacker, drv, &post{ID: 2, TenantID: "attacker"})
		require.NoError(t, err)
	})

	t.Run("upsert of a new row", func(t *testing.T) {
		expectStored(mock, nil)
		mock.ExpectExec(`INSERT INTO "public"."posts"`).WillReturnResult(sqlmock.NewResult(0, 1))
		_, err := posts.Upsert(attacker, drv, &post{ID: 1, TenantID: "attacker"})
		require.NoError(t, err)
	})
}

func TestIsStoredOwner(t *testing.T) {
	drv, mock := mockDriver(t)
	base := tablekit.NewModel[post](postTable)
	rule := privacy.IsStoredOwner[post](postAuthorColumn, privacy.NewStore(base, drv))
	ctx := viewerContext(&privacy.SimpleViewer{UserID: "42"})
	update := sqlgen.Update(postTable)

	expectStored(mock, &post{ID: 1, AuthorID: "7"})
	assert.ErrorIs(t, rule.Eval(ctx, update, rowInput(&post{ID: 1, AuthorID: "42"})), privacy.Skip)

	expectStored(mock, &post{ID: 1, AuthorID: "42"})
	assert.ErrorIs(t, rule.Eval(ctx, update, rowInput(&post{ID: 1, AuthorID: "42"})), privacy.Allow)

	expectStored(mock, &post{ID: 1, AuthorID: "42"})
	assert.ErrorIs(t, rule.Eval(ctx, sqlgen.Delete(postTable), keyInput(1)), privacy.Allow)

	expectStored(mock, nil)
	assert.ErrorIs(t, rule.Eval(ctx, sqlgen.Delete(postTable), keyInput(1)), privacy.Skip)

	assert.ErrorIs(t, rule.Eval(ctx, sqlgen.Insert(postTable), rowInput(&post{AuthorID: "42"})), privacy.Allow)
	assert.ErrorIs(t, rule.Eval(ctx, sqlgen.SelectAll(postTable), &input{}), privacy.Skip)

	mock.ExpectQuery(`SELECT`).WillReturnError(sqlmock.ErrCancelled)
	err := rule.Eval(ctx, update, rowInput(&post{ID: 1, AuthorID: "42"}))
	require.Error(t, err)
	assert.NotErrorIs(t, err, privacy.Skip)
}

func TestPolicyHook(t *testing.T) {
	drv, mock := mockDriver(t)
	base := tablekit.NewModel[post](postTable)
	posts := base.WithHooks(
		privacy.NewPolicy(
			privacy.DenyIfNoViewer[post, int64](),
			privacy.HasRole[post, int64]("admin"),
			privacy.AllowOperationRule[post, int64](sqlgen.OpSelect),
			privacy.IsStoredOwner[post](postAuthorColumn, privacy.NewStore(base, drv)),
			privacy.AlwaysDenyRule[post, int64](),
		).Hook(),
	)
	author := viewerContext(&privacy.SimpleViewer{UserID: "42"})
	stranger := viewerContext(&privacy.SimpleViewer{UserID: "7"})
	admin := viewerContext(&privacy.SimpleViewer{UserID: "1", Roles: []string{"admin"}})

	t.Run("anonymous", func(t *testing.T) {
		_, err := posts.Find(context.Background(), drv, 1)
		require.ErrorIs(t, err, privacy.Deny)
		var hookErr *tablekit.HookError
		require.ErrorAs(t, err, &hookErr)
		assert.Equal(t, tablekit.PreBind, hookErr.Stage)
	})

	t.Run("reads", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM "public"."posts"`).
			WillReturnRows(sqlmock.NewRows(postColumns).AddRow(1, "42", "", "hello"))
		p, err := posts.Find(stranger, drv, 1)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "hello", p.Title)
	})

	t.Run("owner", func(t *testing.T) {
		expectStored(mock, &post{ID: 1, AuthorID: "42"})
		mock.ExpectExec(`UPDATE "public"."posts" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
		_, err := posts.Update(author, drv, &post{ID: 1, AuthorID: "42", Title: "edited"})
		require.NoError(t, err)
	})

	t.Run("stranger", func(t *testing.T) {
		expectStored(mock, &post{ID: 1, AuthorID: "42"})
		_, err := posts.Update(stranger, drv, &post{ID: 1, AuthorID: "7"})
		require.ErrorIs(t, err, privacy.Deny)
		expectStored(mock, &post{ID: 1, AuthorID: "42"})
		_, err = posts.DeleteByKey(stranger, drv, 1)
		require.ErrorIs(t, err, privacy.Deny)
	})

	t.Run("admin", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM "public"."posts"`).WillReturnResult(sqlmock.NewResult(0, 1))
		_, err := posts.DeleteByKey(admin, drv, 1)
		require.NoError(t, err)
	})

	t.Run("system", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO "public"."posts"`).WillReturnResult(sqlmock.NewResult(0, 1))
		_, err := posts.Create(privacy.DecisionContext(context.Background(), privacy.Allow), drv, &post{ID: 2})
		require.NoError(t, err)
	})
}
