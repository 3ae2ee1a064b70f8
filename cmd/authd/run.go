package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/credstore"
	"github.com/MrEthical07/authcore/httpapi"
	"github.com/MrEthical07/authcore/internal/appconfig"
	promexport "github.com/MrEthical07/authcore/metrics/export/prometheus"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func run(ctx context.Context, args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := appconfig.Load(f.envFile)
	if err != nil {
		return err
	}

	log := newLogger(cfg.LogLevel)

	rdb, closeRedis, err := openRedis(ctx, cfg, f.dev, log)
	if err != nil {
		return err
	}
	defer closeRedis()

	store, creator, closeStore, err := openCredentials(ctx, cfg, f, log)
	if err != nil {
		return err
	}
	defer closeStore()

	builder := authcore.New().
		WithConfig(cfg.Engine()).
		WithRedis(rdb).
		WithCredentialStore(store).
		WithLogger(log)
	if cfg.AuditLog {
		builder = builder.WithAuditSink(authcore.NewSlogSink(log.With("component", "audit")))
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("engine build: %w", err)
	}
	defer engine.Close()

	report := engine.SecurityReport()
	log.Info("security.posture",
		"production", report.ProductionMode,
		"signing", report.SigningAlgorithm,
		"password_algorithm", report.PasswordAlgorithm,
		"access_ttl", report.AccessTTL,
		"refresh_ttl", report.RefreshTTL,
		"login_throttle", report.LoginThrottleActive,
		"ip_throttle", report.IPThrottleActive,
		"revoke_all_on_password_change", report.RevokeAllOnPasswordChange,
	)

	if len(f.seeds) > 0 {
		ids, err := seedUsers(ctx, engine, creator, f.seeds)
		if err != nil {
			return err
		}
		log.Info("users.seeded", "count", len(ids), "logins", f.seeds.String())
	}

	opts := cfg.HTTP()
	if cfg.Metrics {
		opts.Metrics = promexport.Handler(promexport.NewRegistry(engine))
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewHandler(engine, log, opts).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	log.Info("server.start", "addr", cfg.HTTPAddr, "dev", f.dev, "production", cfg.ProductionMode)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server.shutdown.fail", "err", err)
		return err
	}

	log.Info("server.stopped", "audit_dropped", engine.AuditDropped())
	return nil
}

func newLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(log)
	return log
}

func openRedis(ctx context.Context, cfg appconfig.Config, dev bool, log *slog.Logger) (redis.UniversalClient, func(), error) {
	addr := cfg.RedisAddr
	var mr *miniredis.Miniredis
	if dev {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("miniredis: %w", err)
		}
		addr = mr.Addr()
		log.Warn("redis.embedded", "addr", addr)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	closeFn := func() {
		_ = rdb.Close()
		if mr != nil {
			mr.Close()
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	return rdb, closeFn, nil
}

var errDatabaseRequired = errors.New("authd: DATABASE_URL is required in production mode")

func openCredentials(ctx context.Context, cfg appconfig.Config, f flags, log *slog.Logger) (authcore.CredentialStore, userCreator, func(), error) {
	if cfg.ProductionMode && cfg.DatabaseURL == "" {
		return nil, nil, nil, errDatabaseRequired
	}
	if f.dev || cfg.DatabaseURL == "" {
		log.Warn("credentials.inmemory")
		mem := credstore.NewMemory()
		return mem, memoryCreator{mem}, func() {}, nil
	}

	db, err := credstore.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if f.migrate {
		if err := credstore.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
	}

	pg := credstore.NewPostgres(db)
	return pg, postgresCreator{pg}, func() { closeDB(db, log) }, nil
}

func closeDB(db *sql.DB, log *slog.Logger) {
	if err := db.Close(); err != nil {
		log.Error("db.close.fail", "err", err)
	}
}

type memoryCreator struct{ m *credstore.Memory }

func (c memoryCreator) create(_ context.Context, login, passwordHash, role string) (string, error) {
	u, err := c.m.Put(login, passwordHash, role, true)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

type postgresCreator struct{ p *credstore.Postgres }

func (c postgresCreator) create(ctx context.Context, login, passwordHash, role string) (string, error) {
	u, err := c.p.Create(ctx, login, passwordHash, role)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}
