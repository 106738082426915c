package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"registration-backend/internal/health"
	"registration-backend/internal/notify"
	"registration-backend/internal/queue"
	"registration-backend/internal/registrations"
	"registration-backend/internal/shared/config"
	"registration-backend/internal/shared/server"
	"registration-backend/internal/shared/storage/db"
	"registration-backend/internal/shared/storage/object"
	localstore "registration-backend/internal/shared/storage/object/local"
	s3store "registration-backend/internal/shared/storage/object/s3"
	"registration-backend/internal/shared/telemetry"
	"registration-backend/internal/workerproc"
)

const natsClientName = "registration-backend"

// ErrNoQueue is returned by consumers when no queue backend is configured.
var ErrNoQueue = errors.New("no queue backend configured")

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client
	// NATS is set when QUEUE_BACKEND=nats; the worker subscribes on it.
	NATS  *nats.Conn
	Redis *redis.Client

	RegistrationsRepo    registrations.Repo
	RegistrationsService *registrations.Service
	RegistrationsHandler *registrations.Handler
	Health               *health.Service
	Mailer               notify.Mailer
	Processor            *workerproc.Processor
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	telemetry.ConfigureRollbar(cfg.RollbarToken, cfg.Env, "")

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}

	if err := buildQueue(ctx, app); err != nil {
		app.Close()
		return nil, err
	}

	refs, err := buildRefs(ctx, app)
	if err != nil {
		app.Close()
		return nil, err
	}

	buildServices(app, refs)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:        app.Config,
		Registrations: app.RegistrationsHandler,
		Health:        app.Health,
	})

	return app, nil
}

// Close releases connections opened by Build.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.NATS != nil {
		a.NATS.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil && !db.IsLambdaRuntime() {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db_memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db_memory", map[string]any{
				"reason": "database connect failed",
				"error":  err.Error(),
			})
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, app *App) error {
	cfg := app.Config
	switch cfg.QueueBackend {
	case "sqs":
		client, err := queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
		if err != nil {
			return err
		}
		app.Queue = client
	case "nats":
		conn, err := queue.DialNATS(cfg.NATSURL, natsClientName)
		if err != nil {
			return err
		}
		app.NATS = conn
		client, err := queue.NewNATSClient(conn, cfg.NATSSubject)
		if err != nil {
			return err
		}
		app.Queue = client
	default:
		telemetry.Info("bootstrap.queue_disabled", map[string]any{"reason": "QUEUE_BACKEND empty"})
	}
	return nil
}

func buildRefs(ctx context.Context, app *App) (registrations.ReferenceGenerator, error) {
	if strings.TrimSpace(app.Config.RedisURL) == "" {
		return registrations.RandomReferences{}, nil
	}
	opts, err := redis.ParseURL(app.Config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if isDevLike(app.Config.Env) {
			telemetry.Warn("bootstrap.redis_unavailable", map[string]any{"error": err.Error()})
			return registrations.RandomReferences{}, nil
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	app.Redis = client
	return &registrations.RedisSequence{Client: client}, nil
}

func buildMailer(cfg config.Config) notify.Mailer {
	if strings.TrimSpace(cfg.SendGridAPIKey) == "" {
		return notify.LogMailer{}
	}
	return notify.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFromName, cfg.MailFromAddress)
}

func buildServices(app *App, refs registrations.ReferenceGenerator) {
	var repo registrations.Repo
	if app.DB != nil {
		repo = &registrations.PGRepo{DB: app.DB}
	} else {
		repo = registrations.NewMemoryRepo()
	}

	rules := registrations.DefaultRules()
	rules.MaxFileBytes = app.Config.MaxFileBytes

	svc := &registrations.Service{
		Repo:            repo,
		Store:           app.Store,
		StorageProvider: app.Config.ObjectStoreType,
		Refs:            refs,
		Events:          app.Queue,
		Rules:           rules,
	}

	app.RegistrationsRepo = repo
	app.RegistrationsService = svc
	app.RegistrationsHandler = registrations.NewHandler(svc, app.Config.MaxRequestBytes)
	app.Mailer = buildMailer(app.Config)
	app.Processor = &workerproc.Processor{Applications: svc, Mailer: app.Mailer}
	if app.DB != nil {
		app.Health = health.NewService(app.DB)
	} else {
		app.Health = health.NewService(nil)
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
