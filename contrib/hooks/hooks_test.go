package hooks_test

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/syssam/tablekit"
	"github.com/syssam/tablekit/contrib/hooks"
	"github.com/syssam/tablekit/dialect"
	tksql "github.com/syssam/tablekit/dialect/sql"
	"github.com/syssam/tablekit/schema"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type user struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt sql.NullTime
}

var userTable = schema.MustTable("public", "users", func(u *user) uuid.UUID { return u.ID },
	schema.PrimaryKey[user]("ID", "id"),
	schema.Data[user]("Name", "name"),
	schema.Timestamp[user](schema.Created, "CreatedAt", "created_at"),
	schema.Timestamp[user](schema.Updated, "UpdatedAt", "updated_at"),
	schema.Timestamp[user](schema.Deleted, "DeletedAt", "deleted_at"),
)

func (u *user) Bind(c schema.Column[user], q tablekit.Bindable) error {
	switch c.Field() {
	case "ID":
		q.Bind(u.ID)
	case "Name":
		q.Bind(u.Name)
	case "CreatedAt":
		q.Bind(u.CreatedAt)
	case "UpdatedAt":
		q.Bind(u.UpdatedAt)
	case "DeletedAt":
		q.Bind(u.DeletedAt)
	default:
		return tablekit.UnknownColumn(c.Field())
	}
	return nil
}

func (u *user) Target(c schema.Column[user]) (any, error) {
	switch c.Field() {
	case "ID":
		return &u.ID, nil
	case "Name":
		return &u.Name, nil
	case "CreatedAt":
		return &u.CreatedAt, nil
	case "UpdatedAt":
		return &u.UpdatedAt, nil
	case "DeletedAt":
		return &u.DeletedAt, nil
	default:
		return nil, tablekit.UnknownColumn(c.Field())
	}
}

var clock = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func now() time.Time { return clock }

func mockDriver(t *testing.T) (*tksql.Driver, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return tksql.OpenDB(dialect.Postgres, db), mock
}

func TestTimestamps(t *testing.T) {
	drv, mock := mockDriver(t)
	users := tablekit.NewModel[user](userTable).WithHooks(hooks.Timestamps[user](userTable, now))

	mock.ExpectExec(`INSERT INTO "public"."users"`).WillReturnResult(sqlmock.NewResult(0, 1))
	u := &user{ID: uuid.New(), Name: "a8m"}
	_, err := users.Create(context.Background(), drv, u)
	require.NoError(t, err)
	assert.Equal(t, clock, u.CreatedAt)
	require.NotNil(t, u.UpdatedAt)
	assert.Equal(t, clock, *u.UpdatedAt)
	assert.False(t, u.DeletedAt.Valid, "deleted timestamps are left alone")

	created := clock.Add(-time.Hour)
	u.CreatedAt = created
	clock = clock.Add(time.Minute)
	defer func() { clock = clock.Add(-time.Minute) }()
	mock.ExpectExec(`UPDATE "public"."users" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	_, err = users.Update(context.Background(), drv, u)
	require.NoError(t, err)
	assert.Equal(t, created, u.CreatedAt)
	assert.Equal(t, clock, *u.UpdatedAt)
}

func TestTimestampsKeepsCreated(t *testing.T) {
	drv, mock := mockDriver(t)
	users := tablekit.NewModel[user](userTable).WithHooks(hooks.Timestamps[user](userTable, now))

	imported := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO "public"."users"`).WillReturnResult(sqlmock.NewResult(0, 1))
	u := &user{ID: uuid.New(), CreatedAt: imported}
	_, err := users.Upsert(context.Background(), drv, u)
	require.NoError(t, err)
	assert.Equal(t, imported, u.CreatedAt)
	assert.Equal(t, clock, *u.UpdatedAt)
}

func TestUUIDKey(t *testing.T) {
	drv, mock := mockDriver(t)
	users := tablekit.NewModel[user](userTable).WithHooks(hooks.UUIDKey[user](userTable))

	mock.ExpectExec(`INSERT INTO "public"."users"`).WillReturnResult(sqlmock.NewResult(0, 1))
	u := &user{Name: "a8m"}
	_, err := users.Create(context.Background(), drv, u)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, u.ID)

	id := u.ID
	mock.ExpectExec(`INSERT INTO "public"."users"`).WillReturnResult(sqlmock.NewResult(0, 1))
	_, err = users.Upsert(context.Background(), drv, u)
	require.NoError(t, err)
	assert.Equal(t, id, u.ID, "existing keys are kept")
}

func TestReadOnly(t *testing.T) {
	drv, mock := mockDriver(t)
	users := tablekit.NewModel[user](userTable).WithHooks(hooks.ReadOnly[user, uuid.UUID]())

	_, err := users.Create(context.Background(), drv, &user{})
	require.ErrorIs(t, err, hooks.ErrReadOnly)
	_, err = users.DeleteByKey(context.Background(), drv, uuid.New())
	require.ErrorIs(t, err, hooks.ErrReadOnly)

	mock.ExpectQuery(`SELECT`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	found, err := users.Find(context.Background(), drv, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestLog(t *testing.T) {
	drv, mock := mockDriver(t)
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	users := tablekit.NewModel[user](userTable, tablekit.WithLogger(slog.New(slog.DiscardHandler))).
		WithHooks(hooks.Log[user, uuid.UUID](l))

	mock.ExpectExec(`DELETE FROM "public"."users"`).WillReturnResult(sqlmock.NewResult(0, 3))
	_, err := users.DeleteByKey(context.Background(), drv, uuid.New())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "op=delete rows=3")

	buf.Reset()
	mock.ExpectExec(`DELETE FROM "public"."users"`).WillReturnError(sqlmock.ErrCancelled)
	_, err = users.DeleteByKey(context.Background(), drv, uuid.New())
	require.Error(t, err)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "error=")
}
