// Package container builds the application graph from configuration. main
// owns the returned Container; nothing here is process-global.
package container

import (
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-management/config"
	"github.com/oksasatya/go-ddd-user-management/internal/application"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/repository"
	"github.com/oksasatya/go-ddd-user-management/internal/infrastructure/eventbus"
	"github.com/oksasatya/go-ddd-user-management/internal/infrastructure/memory"
	"github.com/oksasatya/go-ddd-user-management/internal/infrastructure/metrics"
	pginfra "github.com/oksasatya/go-ddd-user-management/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-user-management/internal/infrastructure/search"
	"github.com/oksasatya/go-ddd-user-management/pkg/helpers"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Container struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Metrics *metrics.Metrics

	PGPool *pgxpool.Pool
	Redis  *redis.Client
	ES     *elasticsearch.Client

	Repo      repository.UserRepository
	Publisher *eventbus.Multi
	Index     *search.UserIndex
	Users     *application.Service

	closers []func()
}

// Build wires every component cfg enables. On error, whatever was opened is
// closed before returning.
func Build(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (c *Container, err error) {
	c = &Container{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			c.Close()
			c = nil
		}
	}()

	if cfg.MetricsEnabled {
		c.Metrics = metrics.New("users")
	}

	if c.Repo, err = c.buildRepository(ctx); err != nil {
		return c, err
	}
	if c.needsRedis() {
		c.Redis = helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		c.closers = append(c.closers, func() { _ = c.Redis.Close() })
		if pingErr := helpers.PingRedis(ctx, c.Redis, 3); pingErr != nil {
			logger.WithError(pingErr).Warn("redis unreachable, continuing")
		}
	}
	if c.Publisher, err = c.buildPublisher(); err != nil {
		return c, err
	}
	if cfg.SearchEnabled {
		if err = c.buildIndex(ctx); err != nil {
			return c, err
		}
	}

	policy, err := Policy(cfg)
	if err != nil {
		return c, err
	}
	var index application.UserIndexer
	if c.Index != nil {
		index = c.Index
	}
	c.Users = application.NewService(c.Repo, c.Publisher, index, logger, c.Metrics, policy)
	return c, nil
}

// Policy maps configuration onto the service policy.
func Policy(cfg *config.Config) (application.Policy, error) {
	initial, err := entity.ParseUserStatus(cfg.UserInitialStatus)
	if err != nil {
		return application.Policy{}, fmt.Errorf("USER_INITIAL_STATUS: %w", err)
	}
	if initial != entity.StatusPending && initial != entity.StatusActive {
		return application.Policy{}, fmt.Errorf("USER_INITIAL_STATUS must be PENDING or ACTIVE, got %s", initial)
	}
	return application.Policy{
		InitialStatus:      initial,
		EnforceUniqueEmail: cfg.EnforceUniqueEmail,
		DefaultPageSize:    cfg.PageSizeDefault,
		MaxPageSize:        cfg.PageSizeMax,
	}, nil
}

func (c *Container) buildRepository(ctx context.Context) (repository.UserRepository, error) {
	cfg := c.Config
	switch cfg.StoreDriver {
	case StoreMemory, "":
		c.Logger.Warn("using in-memory user store; data is lost on restart")
		return memory.NewUserRepository(), nil
	case StorePostgres:
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
			MaxConns:        cfg.DBMaxConns,
			MinConns:        cfg.DBMinConns,
			MaxConnLifetime: cfg.DBMaxConnLife,
			ApplicationName: cfg.AppName,
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		c.PGPool = pool
		c.closers = append(c.closers, pool.Close)
		if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, c.Logger); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return pginfra.NewUserRepository(pool), nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

func (c *Container) needsRedis() bool {
	return c.Config.HasPublisher("redis") || c.Config.RateLimitPerMinute > 0
}

func (c *Container) buildPublisher() (*eventbus.Multi, error) {
	cfg := c.Config
	var sinks []eventbus.Publisher
	for _, name := range cfg.Publishers() {
		switch name {
		case "log":
			sinks = append(sinks, eventbus.NewLogPublisher(c.Logger))
		case "rabbitmq":
			p, err := eventbus.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEventsQueue)
			if err != nil {
				return nil, err
			}
			c.closers = append(c.closers, p.Close)
			sinks = append(sinks, p)
		case "redis":
			sinks = append(sinks, eventbus.NewRedisStreamPublisher(c.Redis, cfg.RedisEventsStream, cfg.RedisStreamMaxLen))
		default:
			return nil, fmt.Errorf("unknown event publisher %q", name)
		}
	}
	c.Logger.WithField("sinks", cfg.Publishers()).Info("event publishers configured")
	return eventbus.NewMulti(c.Metrics, sinks...), nil
}

func (c *Container) buildIndex(ctx context.Context) error {
	cfg := c.Config
	es, err := search.NewClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		return fmt.Errorf("elasticsearch client: %w", err)
	}
	c.ES = es
	c.Index = search.NewUserIndex(es, cfg.ESUsersIndex)
	if err := c.Index.EnsureIndex(ctx); err != nil {
		c.Logger.WithError(err).Warn("ensure search index failed, search falls back to the store")
	}
	return nil
}

// Close releases connections in reverse order of opening.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
