package migration

import (
	authdomain "github.com/securesign/securesign/internal/auth/domain"
	auditdomain "github.com/securesign/securesign/internal/audit/domain"
	"github.com/securesign/securesign/internal/config"
	docdomain "github.com/securesign/securesign/internal/document/domain"
	invdomain "github.com/securesign/securesign/internal/invitation/domain"
	sigdomain "github.com/securesign/securesign/internal/signature/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// SQLite is the zero-setup path for local development; gorm's
		// migrator keeps it in sync with the models directly.
		return conn.AutoMigrate(
			&authdomain.User{},
			&docdomain.Document{},
			&invdomain.Invitation{},
			&sigdomain.SignatureField{},
			&auditdomain.AuditLog{},
		)
	}),
)
