package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	catalogdomain "github.com/wecloud/backoffice/internal/catalog/domain"
	"github.com/wecloud/backoffice/internal/config"
	invoicedomain "github.com/wecloud/backoffice/internal/invoice/domain"
	notificationdomain "github.com/wecloud/backoffice/internal/notification/domain"
	subscriberdomain "github.com/wecloud/backoffice/internal/subscriber/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// Versioned migrations target postgres; local sqlite and mysql
			// setups take the schema straight from the models.
			return conn.AutoMigrate(
				&catalogdomain.Package{},
				&subscriberdomain.Subscriber{},
				&invoicedomain.Invoice{},
				&invoicedomain.InvoiceCounter{},
				&notificationdomain.NotificationLogEntry{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
