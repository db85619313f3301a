package cli

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"trivia-duel/internal/app"
	"trivia-duel/internal/catalog"
	"trivia-duel/internal/config"
	"trivia-duel/internal/domain"
	"trivia-duel/internal/infra/memory"
	"trivia-duel/internal/infra/postgres"
	infraredis "trivia-duel/internal/infra/redis"
	"trivia-duel/internal/infra/sqlstore"
	"trivia-duel/internal/logger"
	"trivia-duel/internal/metrics"
	transport "trivia-duel/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func newLogger(cfg config.Config) *logrus.Entry {
	return logger.New("trivia-duel", cfg.Log.Level)
}

// catalogLoader is what the catalog caches read through.
type catalogLoader interface {
	LoadCategories(ctx context.Context) ([]domain.Category, error)
	LoadQuestions(ctx context.Context, categoryID string) ([]domain.Question, error)
}

// relationalLedger is a ledger that can also serve the catalog.
type relationalLedger interface {
	app.LedgerSetup
	app.CouponLedger
	catalogLoader
	CountQuestions(ctx context.Context) (int, error)
}

// backends holds the opened connections and the adapters built on them.
type backends struct {
	redis  *redis.Client
	sqlDB  *sql.DB
	pgPool *pgxpool.Pool

	store    app.StateStore
	ledger   relationalLedger
	checkers map[string]transport.Checker
}

func (b *backends) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.sqlDB != nil {
		_ = b.sqlDB.Close()
	}
	if b.pgPool != nil {
		b.pgPool.Close()
	}
}

// openBackends connects to what the config asks for. Postgres takes the
// relational role whenever a URL is configured; the database/sql store is
// used otherwise when the state backend or the catalog needs one.
func openBackends(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*backends, error) {
	b := &backends{checkers: make(map[string]transport.Checker)}

	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := b.redis.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, fmt.Errorf("pinging redis: %w", err)
		}
		b.checkers["redis"] = transport.CheckerFunc(func(ctx context.Context) error { return b.redis.Ping(ctx).Err() })
		log.WithField("addr", cfg.Redis.Addr).Info("connected to redis")
	}

	needSQL := cfg.State.Backend == config.BackendSQL || cfg.Catalog.Source == "database"
	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		b.pgPool = pool
		b.ledger = postgres.NewLedger(pool)
		b.checkers["postgres"] = transport.CheckerFunc(pool.Ping)
		log.Info("connected to postgres")
	case needSQL:
		db, err := sqlstore.Open(ctx, cfg.SQL.Driver, cfg.SQL.DSN)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connecting to %s: %w", cfg.SQL.Driver, err)
		}
		b.sqlDB = db
		b.ledger = sqlstore.NewLedger(db)
		b.checkers["sql"] = transport.CheckerFunc(db.PingContext)
		log.WithField("driver", cfg.SQL.Driver).Info("connected to sql store")
	}

	switch cfg.State.Backend {
	case config.BackendRedis:
		b.store = infraredis.NewStateStore(b.redis, config.TTLDuration(cfg.Redis.TTL, 0))
	case config.BackendSQL:
		if b.sqlDB == nil {
			b.Close()
			return nil, fmt.Errorf("sql state backend needs sql.dsn without postgres.url")
		}
		b.store = sqlstore.NewDocumentStore(b.sqlDB)
	case config.BackendPostgres:
		b.store = postgres.NewDocumentStore(b.pgPool)
	default:
		b.store = memory.NewStateStore()
	}
	return b, nil
}

// engine is the fully wired application.
type engine struct {
	backends *backends
	registry *prometheus.Registry
	game     *app.GameService
	economy  *app.EconomyService
}

func buildEngine(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*engine, error) {
	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	ok := false
	defer func() {
		if !ok {
			b.Close()
		}
	}()

	static, err := catalog.Default()
	if err != nil {
		return nil, err
	}

	var coupons app.CouponLedger
	var loader catalogLoader = static
	switch {
	case b.ledger != nil:
		if b.pgPool != nil {
			if err := runMigrations(ctx, cfg, log); err != nil {
				return nil, err
			}
		}
		if err := app.SeedLedger(ctx, b.ledger, static, log); err != nil {
			return nil, err
		}
		coupons = b.ledger
		if cfg.Catalog.Source == "database" {
			loader = b.ledger
		}
	case b.redis != nil:
		ledger := infraredis.NewCouponLedger(b.redis)
		if _, err := ledger.SeedIfEmpty(ctx, domain.DefaultCoupons); err != nil {
			return nil, err
		}
		coupons = ledger
	default:
		coupons = memory.NewCouponLedger(domain.DefaultCoupons...)
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var questions app.QuestionCatalog
	if b.redis != nil {
		questions = infraredis.NewCatalogRepository(b.redis, loader, catalogTTL)
	} else {
		questions = memory.NewCatalogRepository(loader, catalogTTL)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	economy := app.NewEconomyService(b.store, log, m)
	game := app.NewGameService(b.store, questions, coupons, economy, log, m)
	if err := economy.Init(ctx); err != nil {
		return nil, err
	}
	if err := game.Init(ctx); err != nil {
		return nil, err
	}

	ok = true
	return &engine{backends: b, registry: registry, game: game, economy: economy}, nil
}

func (e *engine) Close() {
	e.backends.Close()
}
