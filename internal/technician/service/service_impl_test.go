package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/orgcontext"
	"github.com/smallbiznis/repairdesk/internal/technician/domain"
	dbpkg "github.com/smallbiznis/repairdesk/pkg/db"
	pkgrepository "github.com/smallbiznis/repairdesk/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTechnicianLifecycle(t *testing.T) {
	conn, err := dbpkg.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Technician{}))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{Log: zap.NewNop(), GenID: node, Store: pkgrepository.ProvideStore[domain.Technician](conn)})
	ctx := orgcontext.WithOrgID(context.Background(), 5)

	bob, err := svc.Create(ctx, domain.CreateRequest{Name: "Bob"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{Name: "Alice"})
	require.NoError(t, err)

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Alice", all[0].Name)

	require.NoError(t, svc.Deactivate(ctx, bob.ID.String()))

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Alice", active[0].Name)

	_, err = svc.Get(ctx, "0")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
