package container

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"rpa/runner/internal/browser"
	"rpa/runner/internal/client"
	"rpa/runner/internal/config"
	"rpa/runner/internal/domain"
	"rpa/runner/internal/domain/task"
	"rpa/runner/internal/input"
	"rpa/runner/internal/proxy"
	"rpa/runner/internal/queue"
	"rpa/runner/internal/report"
	"rpa/runner/internal/repository"
	"rpa/runner/internal/service"
	"rpa/runner/internal/state"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// Container holds all initialized components
type Container struct {
	Config     *config.Config
	Session    *browser.Session
	HTTPClient *resty.Client
	Tracker    state.Tracker
	Queue      queue.Queue
	Repository repository.OrderRepository

	Orders *service.OrderService
	Lyrics *service.LyricsService

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates a new container with all dependencies initialized. Redis and
// Postgres are optional; without them completion state and the retry queue
// live in memory and ledger records are only logged.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	container := &Container{
		Config:     cfg,
		Tracker:    state.NewMemoryTracker(),
		Queue:      queue.NewMemoryQueue(),
		Repository: repository.NewLogRepository(),
	}

	var proxySupplier proxy.Supplier

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		proxySupplier = proxy.NewSupplier(gctx, cfg.HTTP.Proxies, cfg.HTTP.ProxyTestURL, nil)
		return nil
	})
	if cfg.Redis.Enabled {
		g.Go(func() error {
			return container.connectRedis(gctx)
		})
	}
	if cfg.Database.Enabled {
		g.Go(func() error {
			return container.connectDatabase(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		container.Close()
		return nil, err
	}

	container.HTTPClient = client.NewHTTPClient(cfg.HTTP, proxySupplier)
	downloader := client.NewDownloader(container.HTTPClient, proxySupplier, cfg.HTTP.MaxRequestsPerSecond)
	translator := client.NewGoogleTranslator(container.HTTPClient, cfg.Lyrics.TranslateURL, cfg.HTTP.MaxRequestsPerSecond)

	session, err := browser.NewSession(browser.Options{
		Headless:      cfg.Browser.Headless,
		ExecPath:      cfg.Browser.ExecPath,
		ActionTimeout: cfg.Browser.ActionTimeout,
		Proxy:         cfg.Browser.Proxy,
	})
	if err != nil {
		container.Close()
		return nil, err
	}
	container.Session = session

	container.Orders = service.NewOrderService(
		cfg.Orders,
		session,
		downloader,
		report.NewPDFRenderer(session),
		container.Tracker,
		container.Queue,
		container.Repository,
	)
	container.Lyrics = service.NewLyricsService(cfg.Lyrics, session, translator)

	return container, nil
}

func (c *Container) connectRedis(ctx context.Context) error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", c.Config.Redis.Host, c.Config.Redis.Port),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.Database,
	})

	// Test connection
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("✅ Connected to Redis successfully")

	redisQueue, err := queue.NewRedisQueue(ctx, rdb, c.Config.Redis.KeyPrefix, c.Config.Redis.ConsumerGroup, task.OrderRetryTaskType)
	if err != nil {
		rdb.Close()
		return err
	}

	c.redis = rdb
	c.Queue = redisQueue
	c.Tracker = state.NewRedisTracker(rdb, c.Config.Redis.KeyPrefix)
	return nil
}

func (c *Container) connectDatabase(ctx context.Context) error {
	db, err := pgxpool.New(ctx, c.Config.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := repository.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return err
	}
	log.Info("✅ Connected to database successfully")

	c.db = db
	c.Repository = repository.NewOrderRepository(db)
	return nil
}

// RunOrders processes the order table at inputPath, or the retry queue when replay is set
func (c *Container) RunOrders(ctx context.Context, inputPath string, replay bool) (*domain.BatchReport, error) {
	if replay {
		return c.Orders.Replay(ctx)
	}

	rows, err := input.ReadOrders(inputPath)
	if err != nil {
		return nil, err
	}
	log.Infof("📋 Loaded %d orders from %s", len(rows), inputPath)

	return c.Orders.Run(ctx, rows)
}

// RunLyrics saves the translated lyrics of the song matching query
func (c *Container) RunLyrics(ctx context.Context, query string, login bool) (*service.LyricsResult, error) {
	return c.Lyrics.Run(ctx, query, login)
}

// Close performs cleanup when shutting down. It releases whatever was initialized.
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	var errs []error
	if c.Session != nil {
		errs = append(errs, c.Session.Close())
	}
	if c.HTTPClient != nil {
		c.HTTPClient.Close()
	}
	if c.redis != nil {
		errs = append(errs, c.redis.Close())
	}
	if c.db != nil {
		c.db.Close()
	}

	if err := errors.Join(errs...); err != nil {
		log.Errorf("❌ Shutdown finished with errors: %v", err)
		return err
	}

	log.Info("Container shut down successfully")
	return nil
}
