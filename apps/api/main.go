package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-gacha/contracts"
	imageshandler "github.com/zenGate-Global/palmyra-gacha/domains/images/be/handler"
	imagesservice "github.com/zenGate-Global/palmyra-gacha/domains/images/be/service"
	playhandler "github.com/zenGate-Global/palmyra-gacha/domains/play/be/handler"
	playservice "github.com/zenGate-Global/palmyra-gacha/domains/play/be/service"
	tenantshandler "github.com/zenGate-Global/palmyra-gacha/domains/tenants/be/handler"
	tenantsservice "github.com/zenGate-Global/palmyra-gacha/domains/tenants/be/service"
	usershandler "github.com/zenGate-Global/palmyra-gacha/domains/users/be/handler"
	usersservice "github.com/zenGate-Global/palmyra-gacha/domains/users/be/service"
	platformauth "github.com/zenGate-Global/palmyra-gacha/platform/go/auth"
	platformlogging "github.com/zenGate-Global/palmyra-gacha/platform/go/logging"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/metrics"
	platformmiddleware "github.com/zenGate-Global/palmyra-gacha/platform/go/middleware"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/persistence/backend"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/random"
	"github.com/zenGate-Global/palmyra-gacha/platform/go/storage"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`

	StoreBackend string                     `env:"STORE_BACKEND" envDefault:"sqlite"` // sqlite | postgres | memory
	Postgres     persistence.PostgresConfig // DATABASE_URL and DB_* settings
	SQLitePath   string                     `env:"SQLITE_PATH" envDefault:"./.data/gacha.db"`

	SessionSecret       string        `env:"SESSION_SECRET,required"`
	MasterPass          string        `env:"MASTER_PASS,required"`
	SessionTTL          time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	SessionCookieSecure bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
	BcryptCost          int           `env:"BCRYPT_COST"`

	StorageBackend  string `env:"STORAGE_BACKEND" envDefault:"local"` // local | gcs
	StorageBucket   string `env:"STORAGE_BUCKET"`                     // required when STORAGE_BACKEND=gcs
	StorageLocalDir string `env:"STORAGE_LOCAL_DIR" envDefault:"./.data/uploads"`
	EnvKey          string `env:"ENV_KEY" envDefault:"dev"`
	StaticDir       string `env:"STATIC_DIR" envDefault:"./public"`

	ReapInterval time.Duration `env:"REAP_INTERVAL" envDefault:"0s"`
	RandomSeed   uint64        `env:"RANDOM_SEED"` // 0 selects a crypto seeded source

	LoginRatePerSec    float64 `env:"LOGIN_RATE_PER_SEC" envDefault:"1"`
	LoginBurst         int     `env:"LOGIN_BURST" envDefault:"5"`
	CORSAllowedOrigins string  `env:"CORS_ALLOWED_ORIGINS"`
	ValidateRequests   bool    `env:"VALIDATE_REQUESTS" envDefault:"false"`
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "gacha-api",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, backend.Config{
		Backend:    cfg.StoreBackend,
		Postgres:   cfg.Postgres,
		SQLitePath: cfg.SQLitePath,
		Bootstrap:  true,
	})
	if err != nil {
		logger.Fatal("open store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer store.Close()

	assets, closeAssets, err := storage.Open(ctx, storage.Config{
		Backend:  cfg.StorageBackend,
		Bucket:   cfg.StorageBucket,
		LocalDir: cfg.StorageLocalDir,
	})
	if err != nil {
		logger.Fatal("open asset storage", zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}
	defer func() {
		_ = closeAssets()
	}()

	src, err := newRandomSource(cfg.RandomSeed)
	if err != nil {
		logger.Fatal("init random source", zap.Error(err))
	}
	if cfg.RandomSeed != 0 {
		logger.Warn("using a fixed random seed; draws are reproducible", zap.Uint64("seed", cfg.RandomSeed))
	}

	spec, err := contracts.Load()
	if err != nil {
		logger.Fatal("load openapi contract", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app := buildApp(cfg, store, assets, src, logger, registry)
	app.deps.Spec = spec

	if cfg.ValidateRequests {
		validatorSpec, err := contracts.Load()
		if err != nil {
			logger.Fatal("load openapi contract", zap.Error(err))
		}
		app.deps.Validator = platformmiddleware.SpecValidator(validatorSpec)
		logger.Info("request validation enabled")
	}

	if cfg.ReapInterval > 0 {
		go app.images.RunReaper(ctx, cfg.ReapInterval, time.Now)
		logger.Info("image reaper started", zap.Duration("interval", cfg.ReapInterval))
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(app.deps),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port), zap.String("store", cfg.StoreBackend))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// app holds the wired router dependencies plus the services main drives directly.
type app struct {
	deps   routerDeps
	images *imagesservice.Service
}

func buildApp(cfg config, store persistence.Store, assets storage.Store, src random.Source, logger *zap.Logger, reg *prometheus.Registry) app {
	recorder := metrics.NewRecorder(reg)
	hasher := platformauth.NewHasher(cfg.BcryptCost)

	sessions := platformauth.NewSessionCodec(platformauth.SessionConfig{
		Secret: []byte(cfg.SessionSecret),
		TTL:    cfg.SessionTTL,
		Secure: cfg.SessionCookieSecure,
	})

	tenantService := tenantsservice.New(store, assets, hasher, cfg.EnvKey, logger)
	userService := usersservice.New(store, usersservice.Config{
		MasterSecret: cfg.MasterPass,
		Hasher:       hasher,
		Recorder:     recorder,
	}, logger)
	imageService := imagesservice.New(store, assets, recorder, logger)
	playService := playservice.New(store, src, recorder, logger)

	return app{
		deps: routerDeps{
			Logger:   logger,
			Sessions: sessions,
			Store:    store,
			Assets:   assets,
			Resolver: tenantService,

			Users:   usershandler.New(userService, sessions, logger),
			Tenants: tenantshandler.New(tenantService, logger),
			Images:  imageshandler.New(imageService, logger),
			Play:    playhandler.New(playService, logger),

			Registry: reg,

			RequestTimeout: cfg.RequestTimeout,
			CORSOrigins:    platformmiddleware.SplitOrigins(cfg.CORSAllowedOrigins),
			LoginRate:      cfg.LoginRatePerSec,
			LoginBurst:     cfg.LoginBurst,
			StaticDir:      cfg.StaticDir,
		},
		images: imageService,
	}
}

func newRandomSource(seed uint64) (random.Source, error) {
	if seed != 0 {
		return random.NewSeeded(seed), nil
	}
	return random.NewSecure()
}
