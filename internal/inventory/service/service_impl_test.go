package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/repairdesk/internal/inventory/domain"
	"github.com/smallbiznis/repairdesk/internal/orgcontext"
	dbpkg "github.com/smallbiznis/repairdesk/pkg/db"
	pkgrepository "github.com/smallbiznis/repairdesk/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupInventory(t *testing.T) domain.Service {
	t.Helper()
	conn, err := dbpkg.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Item{}))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(Params{DB: conn, Log: zap.NewNop(), GenID: node, Store: pkgrepository.ProvideStore[domain.Item](conn)})
}

func TestInventoryCreateAndAdjust(t *testing.T) {
	svc := setupInventory(t)
	ctx := orgcontext.WithOrgID(context.Background(), 9)

	item, err := svc.Create(ctx, domain.CreateRequest{SKU: "ssd-512", Name: "SSD 512GB", UnitPrice: decimal.RequireFromString("49.99"), QuantityOnHand: 3})
	require.NoError(t, err)
	assert.Equal(t, "SSD-512", item.SKU)

	_, err = svc.Create(ctx, domain.CreateRequest{SKU: "SSD-512", Name: "dup", UnitPrice: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrDuplicateSKU)

	updated, err := svc.AdjustStock(ctx, item.ID.String(), -2)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.QuantityOnHand)
	assert.True(t, updated.UnitPrice.Equal(decimal.RequireFromString("49.99")))

	_, err = svc.AdjustStock(ctx, item.ID.String(), -5)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestInventoryValidation(t *testing.T) {
	svc := setupInventory(t)
	ctx := orgcontext.WithOrgID(context.Background(), 9)

	_, err := svc.Create(ctx, domain.CreateRequest{SKU: "x", Name: "x", UnitPrice: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = svc.Create(ctx, domain.CreateRequest{SKU: "", Name: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidSKU)
}
