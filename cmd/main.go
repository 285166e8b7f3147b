package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-cz/devslog"
	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/auth"
	"github.com/siahsang/inkwell/internal/cache"
	"github.com/siahsang/inkwell/internal/config"
	"github.com/siahsang/inkwell/internal/core"
	"github.com/siahsang/inkwell/internal/database"
	"github.com/siahsang/inkwell/internal/database/memory"
	"github.com/siahsang/inkwell/internal/database/postgres"
	"github.com/siahsang/inkwell/internal/feed"
	"github.com/siahsang/inkwell/internal/ratelimit"
	"github.com/siahsang/inkwell/internal/storage"
	"github.com/siahsang/inkwell/internal/task"
	"github.com/siahsang/inkwell/internal/web"
)

// limiterIdle is how long a client's bucket may sit unused before the sweep
// drops it.
const limiterIdle = 10 * time.Minute

type application struct {
	config    *config.Config
	logger    *slog.Logger
	core      *core.Core
	auth      *auth.Auth
	limiter   ratelimit.Limiter
	renderer  *web.Renderer
	scheduler *task.Scheduler
	mediaDir  string
	wg        sync.WaitGroup
}

func main() {
	configPath := flag.String("config", "", "path to a YAML, TOML or JSON config file")
	storageBackend := flag.String("storage", "", "database backend (postgres or memory), overrides database.backend")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading configuration", "error", xerrors.Sprint(err))
		os.Exit(1)
	}
	if *storageBackend != "" {
		cfg.Database.Backend = *storageBackend
	}

	logger := configLogger(cfg, os.Stdout)
	logger.Info("Starting application...", "env", cfg.App.Env, "database", cfg.Database.Backend)

	app, cleanup, err := newApplication(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Error initialising application", "error", xerrors.Sprint(err))
		os.Exit(1)
	}
	defer cleanup()

	if err := app.serve(); err != nil {
		logger.Error("Error running server", "error", xerrors.Sprint(err))
		os.Exit(1)
	}
}

func configLogger(cfg *config.Config, out io.Writer) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	handler := devslog.NewHandler(
		out, &devslog.Options{
			HandlerOptions: &slog.HandlerOptions{
				AddSource: true,
				Level:     slog.LevelDebug,
			},
			NewLineAfterLog: false,
		})

	return slog.New(handler)
}

// newApplication builds every backend named by cfg. cleanup closes them in
// reverse order.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Error("closing resource", "error", err.Error())
			}
		}
	}
	fail := func(err error) (*application, func(), error) {
		cleanup()
		return nil, nil, err
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, store.Close)

	app := &application{config: cfg, logger: logger, scheduler: task.NewScheduler(logger)}

	var c cache.Cache
	switch cfg.Cache.Backend {
	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, client.Close)
		c = cache.NewRedis(client, "inkwell:")
		logger.Info("Redis cache connected", "addr", cfg.Redis.Addr)
	default:
		mem := cache.NewMemory()
		if err := app.scheduler.Add(task.EveryMinute, task.NewSweepJob("cache-sweep", mem.Sweep, logger)); err != nil {
			return fail(err)
		}
		c = mem
	}

	switch cfg.RateLimit.Backend {
	case "redis":
		app.limiter = ratelimit.NewWindow(c, cfg.RateLimit.RequestsPerMinute)
	default:
		limiter := ratelimit.NewMemory(cfg.RateLimit.RequestsPerMinute)
		sweep := func() int { return limiter.Sweep(limiterIdle) }
		if err := app.scheduler.Add(task.EveryMinute, task.NewSweepJob("ratelimit-sweep", sweep, logger)); err != nil {
			return fail(err)
		}
		app.limiter = limiter
	}

	bucket, err := openBucket(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	if local, ok := bucket.(*storage.Local); ok && strings.HasPrefix(cfg.Storage.PublicBaseURL, "/media") {
		app.mediaDir = local.Root()
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = randomSecret()
		logger.Warn("auth.jwt_secret is empty, using a random secret; sessions will not survive a restart")
	}
	app.auth, err = auth.New(secret, cfg.Auth.TokenTTL, cfg.Auth.CookieName, cfg.Auth.SecureCookie, c)
	if err != nil {
		return fail(err)
	}

	app.renderer, err = web.NewRenderer()
	if err != nil {
		return fail(err)
	}

	app.core = core.NewCore(store, c, bucket, logger, core.Options{
		Site: feed.Site{
			Title:       cfg.App.SiteTitle,
			Description: cfg.App.SiteDescription,
			BaseURL:     strings.TrimRight(cfg.App.BaseURL, "/"),
		},
		AdminEmails: cfg.Auth.AdminEmails,
	})

	return app, cleanup, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (database.Store, error) {
	if cfg.Database.Backend == "memory" {
		logger.Warn("Using the in-memory store; data is lost on restart")
		return memory.New(), nil
	}

	store, err := postgres.Open(ctx, cfg.Database.DSN, logger, cfg.Database.QueryTimeout)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Migrate {
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
	}
	logger.Info("Database connection established successfully")
	return store, nil
}

func openBucket(ctx context.Context, cfg *config.Config) (storage.Bucket, error) {
	if cfg.Storage.Backend == "s3" {
		return storage.NewS3(ctx, storage.S3Options{
			Bucket:        cfg.Storage.Bucket,
			Region:        cfg.Storage.Region,
			Endpoint:      cfg.Storage.Endpoint,
			AccessKey:     cfg.Storage.AccessKey,
			SecretKey:     cfg.Storage.SecretKey,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
	}
	return storage.NewLocal(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL)
}
