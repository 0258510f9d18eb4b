package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/wecloud/backoffice/internal/catalog"
	"github.com/wecloud/backoffice/internal/clock"
	"github.com/wecloud/backoffice/internal/config"
	"github.com/wecloud/backoffice/internal/invoice"
	"github.com/wecloud/backoffice/internal/migration"
	"github.com/wecloud/backoffice/internal/notification"
	"github.com/wecloud/backoffice/internal/observability"
	"github.com/wecloud/backoffice/internal/providers"
	"github.com/wecloud/backoffice/internal/ratelimit"
	"github.com/wecloud/backoffice/internal/server"
	"github.com/wecloud/backoffice/internal/subscriber"
	"github.com/wecloud/backoffice/pkg/db"
)

// API-only deployment. The job runner ships separately in apps/scheduler.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		subscriber.Module,
		catalog.Module,
		invoice.Module,
		notification.Module,
		providers.Module,
		ratelimit.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
