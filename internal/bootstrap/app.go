package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"troubledesk/internal/bootstrap/config"
	"troubledesk/internal/bootstrap/logging"
	"troubledesk/internal/errs"
	"troubledesk/internal/infrastructure/persistence/sqlite/model"
)

type App struct {
	Config config.Config
	DB     *gorm.DB
}

// InitSchema migrates the incident, file, event, parameter and cache tables
// and returns their names in migration order.
func (a *App) InitSchema(ctx context.Context) ([]string, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	logging.Info(logCtx, "start schema migration", slog.String("database_driver", a.Config.Database.Driver))

	db := a.DB.WithContext(ctx)
	models := model.All()
	tables := make([]string, 0, len(models))
	for _, m := range models {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return nil, errs.Wrapf(err, "parse model %T", m)
		}
		table := stmt.Schema.Table
		if err := db.AutoMigrate(m); err != nil {
			return nil, errs.Wrapf(err, "auto migrate %s", table)
		}
		logging.Debug(logCtx, "table migrated", slog.String("table", table))
		tables = append(tables, table)
	}

	logging.Info(logCtx, "schema migration completed", slog.Int("tables", len(tables)))
	return tables, nil
}
