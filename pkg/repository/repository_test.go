package repository

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	dbpkg "github.com/smallbiznis/repairdesk/pkg/db"
	"github.com/smallbiznis/repairdesk/pkg/db/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	OrgID snowflake.ID `gorm:"not null;index"`
	Name  string
}

func newWidgetStore(t *testing.T) Repository[widget] {
	t.Helper()
	conn, err := dbpkg.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&widget{}))
	return ProvideStore[widget](conn)
}

func TestStoreScopesWritesByOrg(t *testing.T) {
	ctx := context.Background()
	store := newWidgetStore(t)

	require.NoError(t, store.Create(ctx, &widget{ID: 1, OrgID: 10, Name: "a"}))
	require.NoError(t, store.Create(ctx, &widget{ID: 2, OrgID: 20, Name: "b"}))

	updated, err := store.Update(ctx, 20, 1, map[string]any{"name": "hijack"})
	require.NoError(t, err)
	assert.False(t, updated)

	updated, err = store.Update(ctx, 10, 1, map[string]any{"name": "renamed"})
	require.NoError(t, err)
	assert.True(t, updated)

	got, err := store.FindOne(ctx, &widget{ID: 1})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "renamed", got.Name)

	other, err := store.FindOne(ctx, &widget{ID: 2})
	require.NoError(t, err)
	require.NotNil(t, other)
	assert.Equal(t, "b", other.Name)
}

func TestStoreFindAppliesOptions(t *testing.T) {
	ctx := context.Background()
	store := newWidgetStore(t)

	for _, w := range []*widget{
		{ID: 1, OrgID: 10, Name: "c"},
		{ID: 2, OrgID: 10, Name: "a"},
		{ID: 3, OrgID: 10, Name: "b"},
		{ID: 4, OrgID: 20, Name: "0"},
	} {
		require.NoError(t, store.Create(ctx, w))
	}

	items, err := store.Find(ctx, &widget{OrgID: 10},
		option.WithSortBy(option.QuerySortBy{Field: "name"}),
		option.ApplyOperator(option.Condition{Field: "name", Operator: option.NotEqual, Value: "c"}),
	)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Name)
	assert.Equal(t, "b", items[1].Name)

	missing, err := store.FindOne(ctx, &widget{ID: 99})
	require.NoError(t, err)
	assert.Nil(t, missing)
}
