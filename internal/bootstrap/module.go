package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"troubledesk/internal/bootstrap/config"
	"troubledesk/internal/bootstrap/database"
	"troubledesk/internal/bootstrap/logging"
	"troubledesk/internal/errs"
	cacheinfra "troubledesk/internal/infrastructure/cache"
	"troubledesk/internal/infrastructure/events"
	"troubledesk/internal/infrastructure/export"
	sqliterepo "troubledesk/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "troubledesk/internal/infrastructure/persistence/sqlite/uow"
	"troubledesk/internal/ports"
	"troubledesk/internal/usecase/incident"
	"troubledesk/internal/usecase/parameter"
)

const redisKeyPrefix = "troubledesk:"

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewIncidentRepository,
			fx.As(new(ports.IncidentRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewParameterRepository,
			fx.As(new(ports.ParameterRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(provideCache),
	fx.Provide(provideExporters),
	fx.Provide(provideEventPublisher),
	fx.Provide(provideParameterService),
	fx.Provide(provideIncidentService),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

// provideCache picks the adapter named by cache.driver. The memory adapter's
// ceiling is the longest TTL any caller asks for.
func provideCache(lc fx.Lifecycle, ctx context.Context, cfg config.Config, db *gorm.DB) (ports.Cache, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	driver := strings.ToLower(strings.TrimSpace(cfg.Cache.Driver))
	logging.Info(logCtx, "cache selected", slog.String("driver", driver))

	switch driver {
	case "memory":
		maxTTL := cfg.Cache.StatusTTL
		if cfg.Cache.ParameterTTL > maxTTL {
			maxTTL = cfg.Cache.ParameterTTL
		}
		return cacheinfra.NewMemoryCache(cfg.Cache.Size, maxTTL), nil
	case "sqlite":
		return cacheinfra.NewSQLiteCache(db), nil
	case "redis":
		client := cacheinfra.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return client.Close()
			},
		})
		redisCache := cacheinfra.NewRedisCache(client, redisKeyPrefix)
		if err := redisCache.Ping(ctx); err != nil {
			// Reads fall back to the database while redis is down.
			logging.Warn(logCtx, "redis unreachable at startup", slog.String("addr", cfg.Redis.Addr), slog.Any("err", errs.Loggable(err)))
		}
		return redisCache, nil
	case "none":
		return cacheinfra.NoopCache{}, nil
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", cfg.Cache.Driver)
	}
}

func provideEventPublisher(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.EventPublisher, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	switch strings.ToLower(strings.TrimSpace(cfg.Events.Driver)) {
	case "nats":
		conn, err := events.Connect(ctx, cfg.Events.NATSURL)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return conn.Drain()
			},
		})
		logging.Info(logCtx, "incident events enabled", slog.String("driver", "nats"), slog.String("subject_prefix", cfg.Events.SubjectPrefix))
		return events.NewNATSPublisher(conn, cfg.Events.SubjectPrefix), nil
	case "none", "":
		return events.NoopPublisher{}, nil
	default:
		return nil, fmt.Errorf("unsupported events driver %q", cfg.Events.Driver)
	}
}

type exportersResult struct {
	fx.Out

	Exporters []ports.IncidentExporter `group:"exporters,flatten"`
}

func provideExporters(cfg config.Config) exportersResult {
	loc := cfg.App.Location()
	return exportersResult{
		Exporters: []ports.IncidentExporter{
			export.NewCSVExporter(loc),
			export.NewXLSXExporter(loc),
		},
	}
}

func provideParameterService(
	repo ports.ParameterRepository,
	uow ports.UnitOfWork,
	cache ports.Cache,
	cfg config.Config,
) *parameter.Service {
	return parameter.NewService(repo, uow, cache, cfg.Cache.ParameterTTL)
}

type incidentParams struct {
	fx.In

	Repo       ports.IncidentRepository
	UoW        ports.UnitOfWork
	Cache      ports.Cache
	Parameters *parameter.Service
	Exporters  []ports.IncidentExporter `group:"exporters"`
	Publisher  ports.EventPublisher
	Config     config.Config
}

func provideIncidentService(p incidentParams) *incident.Service {
	return incident.NewService(
		p.Repo,
		p.UoW,
		p.Cache,
		p.Parameters,
		p.Exporters,
		incident.Options{
			StatusTTL:    p.Config.Cache.StatusTTL,
			MaxFileBytes: p.Config.Files.MaxBytes,
			Location:     p.Config.App.Location(),
			Publisher:    p.Publisher,
		},
	)
}
