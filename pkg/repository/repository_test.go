package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"insulead-core/pkg/db/option"
	"insulead-core/pkg/db/pagination"
	"insulead-core/services/testutil"
)

type widget struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Kind      string    `gorm:"column:kind"`
	Qty       int       `gorm:"column:qty"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func seed(t *testing.T, repo Repository[widget]) {
	t.Helper()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.BatchCreate(context.Background(), []*widget{
		{ID: "w1", Kind: "a", Qty: 1, CreatedAt: base},
		{ID: "w2", Kind: "a", Qty: 5, CreatedAt: base.Add(time.Minute)},
		{ID: "w3", Kind: "b", Qty: 9, CreatedAt: base.Add(2 * time.Minute)},
	}))
}

func TestFindOneMissingReturnsNil(t *testing.T) {
	repo := ProvideStore[widget](testutil.NewTestDB(t, &widget{}))

	got, err := repo.FindOne(context.Background(), &widget{ID: "nope"})
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFindWithOperator(t *testing.T) {
	repo := ProvideStore[widget](testutil.NewTestDB(t, &widget{}))
	seed(t, repo)

	out, err := repo.Find(context.Background(), &widget{Kind: "a"},
		option.ApplyOperator(option.Condition{Field: "qty", Operator: option.GT, Value: 2}))
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "w2", out[0].ID)
}

func TestUpdateAndCount(t *testing.T) {
	ctx := context.Background()
	repo := ProvideStore[widget](testutil.NewTestDB(t, &widget{}))
	seed(t, repo)

	require.NoError(t, repo.Update(ctx, "w1", map[string]any{"kind": "b"}))

	n, err := repo.Count(ctx, &widget{Kind: "b"})
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo := ProvideStore[widget](testutil.NewTestDB(t, &widget{}))
	seed(t, repo)

	n, err := repo.Delete(ctx, &widget{Kind: "a"})
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	_, err = repo.Delete(ctx, &widget{})
	require.Error(t, err)
}

func TestCursorPagination(t *testing.T) {
	ctx := context.Background()
	repo := ProvideStore[widget](testutil.NewTestDB(t, &widget{}))
	seed(t, repo)

	extract := func(w *widget) pagination.Cursor { return pagination.Cursor{CreatedAt: w.CreatedAt, ID: w.ID} }

	rows, err := repo.Find(ctx, &widget{}, option.ApplyPagination(pagination.Pagination{Limit: 2}))
	require.NoError(t, err)
	page, info, err := pagination.BuildCursorPage(rows, 2, extract)
	require.NoError(t, err)
	require.Equal(t, []string{"w1", "w2"}, []string{page[0].ID, page[1].ID})
	require.True(t, info.HasMore)

	rows, err = repo.Find(ctx, &widget{}, option.ApplyPagination(pagination.Pagination{Limit: 2, Cursor: info.NextCursor}))
	require.NoError(t, err)
	page, info, err = pagination.BuildCursorPage(rows, 2, extract)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "w3", page[0].ID)
	require.False(t, info.HasMore)
}

func TestWithTrxRollback(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t, &widget{})
	repo := ProvideStore[widget](db)

	tx := db.Begin()
	require.NoError(t, repo.WithTrx(tx).Create(ctx, &widget{ID: "tmp", CreatedAt: time.Now().UTC()}))
	require.NoError(t, tx.Rollback().Error)

	got, err := repo.FindOne(ctx, &widget{ID: "tmp"})
	require.NoError(t, err)
	require.Nil(t, got)
}
