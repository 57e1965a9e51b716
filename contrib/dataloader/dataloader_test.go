package dataloader_test

import (
	"context"
	"slices"
	"testing"

	"github.com/syssam/tablekit"
	"github.com/syssam/tablekit/contrib/dataloader"
	"github.com/syssam/tablekit/dialect"
	tksql "github.com/syssam/tablekit/dialect/sql"
	"github.com/syssam/tablekit/schema"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type author struct {
	ID   int64
	Name string
}

type book struct {
	ID       int64
	AuthorID int64
	Title    string
}

// draft binds nothing for its author column.
type draft struct {
	ID       int64
	AuthorID int64
}

var (
	authorTable = schema.MustTable("public", "author", func(a *author) int64 { return a.ID },
		schema.PrimaryKey[author]("ID", "id"),
		schema.Data[author]("Name", "name"),
	)
	bookAuthor = schema.References[book]("AuthorID", "author_id", authorTable)
	bookTable  = schema.MustTable("public", "book", func(b *book) int64 { return b.ID },
		schema.PrimaryKey[book]("ID", "id"),
		bookAuthor,
		schema.Data[book]("Title", "title"),
	)

	draftAuthor = schema.References[draft]("AuthorID", "author_id", authorTable)
	draftTable  = schema.MustTable("public", "draft", func(d *draft) int64 { return d.ID },
		schema.PrimaryKey[draft]("ID", "id"),
		draftAuthor,
	)

	authors      = tablekit.NewModel[author](authorTable)
	books        = tablekit.NewModel[book](bookTable)
	authorBooks  = tablekit.MustRelation(books, authors, bookAuthor)
	drafts       = tablekit.NewModel[draft](draftTable)
	authorDrafts = tablekit.MustRelation(drafts, authors, draftAuthor)
)

func (a *author) Bind(c schema.Column[author], q tablekit.Bindable) error {
	switch c.Field() {
	case "ID":
		q.Bind(a.ID)
	case "Name":
		q.Bind(a.Name)
	default:
		return tablekit.UnknownColumn(c.Field())
	}
	return nil
}

func (a *author) Target(c schema.Column[author]) (any, error) {
	switch c.Field() {
	case "ID":
		return &a.ID, nil
	case "Name":
		return &a.Name, nil
	default:
		return nil, tablekit.UnknownColumn(c.Field())
	}
}

func (b *book) Bind(c schema.Column[book], q tablekit.Bindable) error {
	switch c.Field() {
	case "ID":
		q.Bind(b.ID)
	case "AuthorID":
		q.Bind(b.AuthorID)
	case "Title":
		q.Bind(b.Title)
	default:
		return tablekit.UnknownColumn(c.Field())
	}
	return nil
}

func (b *book) Target(c schema.Column[book]) (any, error) {
	switch c.Field() {
	case "ID":
		return &b.ID, nil
	case "AuthorID":
		return &b.AuthorID, nil
	case "Title":
		return &b.Title, nil
	default:
		return nil, tablekit.UnknownColumn(c.Field())
	}
}

func (d *draft) Bind(c schema.Column[draft], q tablekit.Bindable) error {
	switch c.Field() {
	case "ID":
		q.Bind(d.ID)
	case "AuthorID":
	default:
		return tablekit.UnknownColumn(c.Field())
	}
	return nil
}

func (d *draft) Target(c schema.Column[draft]) (any, error) {
	switch c.Field() {
	case "ID":
		return &d.ID, nil
	case "AuthorID":
		return &d.AuthorID, nil
	default:
		return nil, tablekit.UnknownColumn(c.Field())
	}
}

func batchSize(t *testing.T, n int) {
	t.Helper()
	prev := dataloader.BatchSize
	dataloader.BatchSize = n
	t.Cleanup(func() { dataloader.BatchSize = prev })
}

func mockDriver(t *testing.T) (*tksql.Driver, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return tksql.OpenDB(dialect.Postgres, db), mock
}

type entity struct {
	id   int
	name string
}

func TestOrderByKeys(t *testing.T) {
	tests := []struct {
		name     string
		keys     []int
		values   []*entity
		expected []string
		missing  []int
	}{
		{
			name:     "all_found",
			keys:     []int{3, 1, 2},
			values:   []*entity{{1, "a"}, {2, "b"}, {3, "c"}},
			expected: []string{"c", "a", "b"},
		},
		{
			name:     "some_missing",
			keys:     []int{1, 4, 2},
			values:   []*entity{{1, "a"}, {2, "b"}},
			expected: []string{"a", "", "b"},
			missing:  []int{1},
		},
		{
			name: "empty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, errs := dataloader.OrderByKeys(tt.keys, tt.values, func(e *entity) int { return e.id })
			require.Len(t, result, len(tt.keys))
			require.Len(t, errs, len(tt.keys))
			for i := range tt.keys {
				if slices.Contains(tt.missing, i) {
					assert.ErrorIs(t, errs[i], dataloader.ErrNotFound)
					assert.Nil(t, result[i])
				} else {
					assert.NoError(t, errs[i])
					assert.Equal(t, tt.expected[i], result[i].name)
				}
			}
		})
	}
}

func TestGroupByKey(t *testing.T) {
	values := []*entity{{1, "a"}, {2, "b"}, {1, "c"}}
	grouped := dataloader.GroupByKey(values, func(e *entity) int { return e.id })
	require.Len(t, grouped, 2)
	assert.Equal(t, []*entity{{1, "a"}, {1, "c"}}, grouped[1])

	ordered := dataloader.OrderGroupsByKeys([]int{2, 3, 1}, grouped)
	assert.Len(t, ordered[0], 1)
	assert.Nil(t, ordered[1])
	assert.Len(t, ordered[2], 2)
}

func TestLoad(t *testing.T) {
	drv, mock := mockDriver(t)
	mock.ExpectQuery("SELECT\n  id,\n  name\nFROM\n  \"public\".\"author\"\nWHERE id IN ($1, $2, $3)").
		WithArgs(int64(3), int64(1), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Le Guin").AddRow(3, "Lem"))

	got, errs, err := dataloader.Load(context.Background(), drv, authors, []int64{3, 1, 3, 9})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "Lem", got[0].Name)
	assert.Equal(t, "Le Guin", got[1].Name)
	assert.Same(t, got[0], got[2])
	assert.Nil(t, got[3])
	assert.ErrorIs(t, errs[3], dataloader.ErrNotFound)

	got, errs, err = dataloader.Load(context.Background(), drv, authors, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Nil(t, errs)
}

func TestParents(t *testing.T) {
	drv, mock := mockDriver(t)
	mock.ExpectQuery("SELECT\n  id,\n  name\nFROM\n  \"public\".\"author\"\nWHERE id IN ($1, $2)").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(2, "Lem").AddRow(1, "Le Guin"))

	bs := []*book{{ID: 10, AuthorID: 1}, {ID: 11, AuthorID: 2}, {ID: 12, AuthorID: 1}}
	got, errs, err := dataloader.Parents(context.Background(), drv, authorBooks, bs)
	require.NoError(t, err)
	assert.Equal(t, []error{nil, nil, nil}, errs)
	assert.Equal(t, "Le Guin", got[0].Name)
	assert.Equal(t, "Lem", got[1].Name)
	assert.Equal(t, "Le Guin", got[2].Name)
}

func TestChildren(t *testing.T) {
	drv, mock := mockDriver(t)
	mock.ExpectQuery("SELECT\n  id,\n  author_id,\n  title\nFROM\n  \"public\".\"book\"\nWHERE author_id IN ($1, $2)").
		WithArgs(int64(2), int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "title"}).
			AddRow(1, 2, "Solaris").
			AddRow(2, 2, "The Cyberiad"))

	got, err := dataloader.Children(context.Background(), drv, authorBooks, []int64{2, 5})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Len(t, got[0], 2)
	assert.Equal(t, "Solaris", got[0][0].Title)
	assert.Empty(t, got[1])
}

func TestParentsUnboundKey(t *testing.T) {
	drv, _ := mockDriver(t)
	_, _, err := dataloader.Parents(context.Background(), drv, authorDrafts, []*draft{{ID: 1, AuthorID: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bound 0 values")
}

func TestLoadBatches(t *testing.T) {
	batchSize(t, 2)
	drv, mock := mockDriver(t)
	mock.ExpectQuery("SELECT\n  id,\n  name\nFROM\n  \"public\".\"author\"\nWHERE id IN ($1, $2)").
		WithArgs(int64(5), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(4, "Lem"))
	mock.ExpectQuery("SELECT\n  id,\n  name\nFROM\n  \"public\".\"author\"\nWHERE id IN ($1, $2)").
		WithArgs(int64(3), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(2, "Le Guin").AddRow(3, "Lewis"))
	mock.ExpectQuery("SELECT\n  id,\n  name\nFROM\n  \"public\".\"author\"\nWHERE id IN ($1)").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Tolkien"))

	got, errs, err := dataloader.Load(context.Background(), drv, authors, []int64{5, 4, 3, 2, 1, 4})
	require.NoError(t, err)
	require.Len(t, got, 6)
	assert.Nil(t, got[0])
	assert.ErrorIs(t, errs[0], dataloader.ErrNotFound)
	assert.Equal(t, []string{"Lem", "Lewis", "Le Guin", "Tolkien", "Lem"}, []string{got[1].Name, got[2].Name, got[3].Name, got[4].Name, got[5].Name})
}

func TestChildrenBatches(t *testing.T) {
	batchSize(t, 1)
	drv, mock := mockDriver(t)
	mock.ExpectQuery("SELECT\n  id,\n  author_id,\n  title\nFROM\n  \"public\".\"book\"\nWHERE author_id IN ($1)").
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "title"}).AddRow(1, 2, "Solaris"))
	mock.ExpectQuery("SELECT\n  id,\n  author_id,\n  title\nFROM\n  \"public\".\"book\"\nWHERE author_id IN ($1)").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "title"}).AddRow(7, 5, "Fiasco"))

	got, err := dataloader.Children(context.Background(), drv, authorBooks, []int64{2, 5})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Solaris", got[0][0].Title)
	assert.Equal(t, "Fiasco", got[1][0].Title)
}
