package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/backfill"
	"github.com/smallbiznis/repairdesk/internal/clock"
	"github.com/smallbiznis/repairdesk/internal/config"
	"github.com/smallbiznis/repairdesk/internal/currency"
	"github.com/smallbiznis/repairdesk/internal/lock"
	"github.com/smallbiznis/repairdesk/internal/observability"
	"github.com/smallbiznis/repairdesk/internal/organization"
	"github.com/smallbiznis/repairdesk/internal/scheduler"
	"github.com/smallbiznis/repairdesk/internal/tax"
	"github.com/smallbiznis/repairdesk/pkg/db"
	"go.uber.org/fx"
)

// The sweep worker runs the backfill loop without the HTTP surface. Schema
// migrations are left to the API process.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		lock.Module,

		// Domain services required by the backfill sweep
		organization.Module,
		currency.Module,
		tax.Module,
		backfill.Module,

		// No server module!
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
