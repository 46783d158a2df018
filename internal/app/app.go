// Package app wires configuration into the running service: storage backend,
// authentication, events and report archive.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/convenios/prioridades/internal/authz"
	"github.com/convenios/prioridades/internal/config"
	"github.com/convenios/prioridades/internal/database"
	"github.com/convenios/prioridades/internal/events"
	"github.com/convenios/prioridades/internal/oidc"
	"github.com/convenios/prioridades/internal/priority/repository"
	"github.com/convenios/prioridades/internal/priority/service"
	"github.com/convenios/prioridades/internal/report"
	"github.com/convenios/prioridades/internal/sessions"
	"github.com/convenios/prioridades/internal/storage"
	"github.com/convenios/prioridades/internal/tokens"
	"github.com/convenios/prioridades/pkg/logger"
	"github.com/convenios/prioridades/pkg/middleware"
)

const connectAttempts = 5

// App holds the long lived dependencies of the server and the CLI.
type App struct {
	Config    *config.Config
	Backend   string
	Repo      repository.Repository
	Service   *service.Service
	Archiver  *report.Archiver
	Verifier  middleware.Verifier
	Redis     *redis.Client
	Publisher events.Publisher

	closers []func()
}

// New connects every configured dependency. Unreachable optional services are
// logged and skipped; an unreachable database falls back to memory.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	repo, backend, closeRepo, err := OpenRepository(ctx, cfg)
	if err != nil {
		logger.Warnf("%s backend unavailable, using in-memory store: %v", cfg.Store.Backend, err)
		repo, backend, closeRepo = repository.NewMemoryRepo(), config.StoreMemory, func() {}
	}
	a.Repo, a.Backend = repo, backend
	a.closers = append(a.closers, closeRepo)

	az, err := authz.NewAuthorizer()
	if err != nil {
		return nil, err
	}

	a.Publisher = events.NopPublisher{}
	if cfg.NATS.URL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			logger.Warnf("events disabled: %v", err)
		} else {
			a.Publisher = pub
			logger.Infof("publishing events to %s", cfg.NATS.URL)
		}
	}
	a.closers = append(a.closers, a.Publisher.Close)

	a.Service = service.New(a.Repo, az, service.WithPublisher(a.Publisher))

	if addr := cfg.Redis.Addr(); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
			_ = client.Close()
		} else {
			a.Redis = client
			sessions.SetBlacklistClient(client)
			a.closers = append(a.closers, func() { _ = client.Close() })
			logger.Infof("connected to Redis at %s", addr)
		}
	}

	a.Verifier = buildVerifier(ctx, cfg)
	a.Archiver = a.buildArchiver(ctx)
	return a, nil
}

// OpenRepository connects the configured store backend and returns it with
// the backend name and a close function.
func OpenRepository(ctx context.Context, cfg *config.Config) (repository.Repository, string, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreMongo:
		if cfg.MongoDB.URI == "" {
			return nil, "", nil, errors.New("MONGODB_URI is not set")
		}
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, connectAttempts)
		if err != nil {
			return nil, "", nil, err
		}
		repo, err := repository.NewMongoRepo(ctx, client.Database(cfg.MongoDB.Database))
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, "", nil, err
		}
		return repo, config.StoreMongo, func() { _ = client.Disconnect(context.Background()) }, nil
	case config.StorePostgres:
		if cfg.Postgres.DSN == "" {
			return nil, "", nil, errors.New("POSTGRES_DSN is not set")
		}
		db, err := database.ConnectPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.Attempts, cfg.Postgres.Backoff)
		if err != nil {
			return nil, "", nil, err
		}
		repo := repository.NewPostgresRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, "", nil, err
		}
		return repo, config.StorePostgres, func() { db.Close() }, nil
	case config.StoreFirestore:
		client, err := database.NewFirestoreClient(ctx, cfg.Firestore.ProjectID, cfg.Firestore.DatabaseID, cfg.Firestore.CredentialsFile)
		if err != nil {
			return nil, "", nil, err
		}
		return repository.NewFirestoreRepo(client), config.StoreFirestore, func() { client.Close() }, nil
	}
	return repository.NewMemoryRepo(), config.StoreMemory, func() {}, nil
}

func buildVerifier(ctx context.Context, cfg *config.Config) middleware.Verifier {
	if issuer := cfg.Keycloak.Issuer(); issuer != "" && cfg.Keycloak.ClientID != "" {
		ver, err := oidc.NewVerifier(ctx, issuer, cfg.Keycloak.ClientID)
		if err == nil {
			logger.Infof("verifying bearer tokens against %s", issuer)
			return ver
		}
		logger.Warnf("failed to initialize OIDC verifier: %v", err)
	}
	if cfg.JWT.Secret != "" {
		logger.Infof("verifying bearer tokens with JWT_SECRET")
		return tokens.NewHMACVerifier(cfg.JWT.Secret)
	}
	if cfg.Keycloak.Insecure {
		logger.Warn("enabling insecure token verifier (integration mode)")
		return oidc.NewInsecureVerifier()
	}
	return nil
}

func (a *App) buildArchiver(ctx context.Context) *report.Archiver {
	var store storage.ObjectStore
	var expiry time.Duration
	switch {
	case a.Config.MinIO.Endpoint != "":
		s, err := storage.NewMinIOStorage(ctx, &a.Config.MinIO)
		if err != nil {
			logger.Warnf("report archive disabled: %v", err)
			return nil
		}
		store, expiry = s, a.Config.MinIO.URLExpiry
	case a.Config.GCS.Bucket != "":
		s, err := storage.NewGCSStorage(ctx, &a.Config.GCS)
		if err != nil {
			logger.Warnf("report archive disabled: %v", err)
			return nil
		}
		store, expiry = s, a.Config.GCS.URLExpiry
		a.closers = append(a.closers, func() { _ = s.Close() })
	default:
		return nil
	}

	var exportLog report.ExportLog = report.NewMemoryExportLog()
	if a.Config.MongoDB.URI != "" {
		if l, err := a.mongoExportLog(ctx); err != nil {
			logger.Warnf("report export log kept in memory: %v", err)
		} else {
			exportLog = l
		}
	}
	return report.NewArchiver(store, exportLog, expiry)
}

func (a *App) mongoExportLog(ctx context.Context) (*report.MongoExportLog, error) {
	client, err := database.ConnectMongo(ctx, a.Config.MongoDB.URI, a.Config.MongoDB.Timeout)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	a.closers = append(a.closers, func() { _ = client.Disconnect(context.Background()) })
	return report.NewMongoExportLog(ctx, client.Database(a.Config.MongoDB.Database))
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
