// Микросервис авторизации: регистрация и вход по паролю, подписанные токены, отзыв при logout.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/authd/internal/config"
	"github.com/authd/internal/handler"
	"github.com/authd/internal/logger"
	"github.com/authd/internal/middleware"
	"github.com/authd/internal/repository"
	"github.com/authd/internal/service"
	"github.com/authd/internal/startup"
	"github.com/authd/internal/storage"
	"github.com/authd/internal/storage/memory"
	"github.com/authd/internal/token"
	"github.com/authd/migrations"
)

func main() {
	logger.SetPrefix("auth")
	dev := flag.Bool("dev", false, "use embedded Postgres and in-memory token store (no external services required)")
	migrate := flag.Bool("migrate", false, "run database migrations and continue")
	flag.Parse()

	logger.Info("starting auth service")
	cfg := config.Load()

	secret := cfg.Token.Secret
	if secret == "" {
		// Вне production допускаем эфемерный секрет: токены не переживут перезапуск.
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			logger.Errorf("generate ephemeral token secret: %v", err)
			os.Exit(1)
		}
		secret = hex.EncodeToString(b)
		logger.Info("TOKEN_SECRET не задан — используется эфемерный секрет (токены сбросятся при перезапуске)")
	}

	var embeddedDB *embeddedpostgres.EmbeddedPostgres
	if *dev {
		db, err := startEmbeddedPostgres(cfg)
		if err != nil {
			logger.Errorf("embedded postgres: %v", err)
			os.Exit(1)
		}
		embeddedDB = db
		defer func() {
			if err := embeddedDB.Stop(); err != nil {
				logger.Errorf("embedded postgres stop: %v", err)
			}
		}()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		logger.Errorf("parse db config: %v", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConnections())
	pool := startup.ConnectDBWithRetry(poolCfg, 60*time.Second, "auth: ")
	defer pool.Close()

	if *migrate || *dev {
		applyMigrations(pool)
	}

	var store storage.TokenStore
	if *dev {
		logger.Info("auth -dev: токены в памяти (не переживут перезапуск)")
		store = memory.New()
	} else {
		redisClient := startup.ConnectRedisWithRetry(cfg.Redis.URL, 60*time.Second, "auth: ")
		store = redisClient
	}
	defer store.Close()

	userRepo := repository.NewUserRepository(pool)
	tokens := token.NewManager([]byte(secret), cfg.Token.TTL, store)
	authSvc := service.NewAuthService(userRepo, tokens, store)
	authH := handler.NewAuthHandler(authSvc)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog)
	r.Use(middleware.RecoverJSON)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/register", authH.Register)
	r.Post("/login", authH.Login)
	r.Post("/logout", authH.Logout)
	r.Get("/profile", authH.Profile)
	r.Post("/delete", authH.Delete)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	var srvWg sync.WaitGroup
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("auth server listening on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("auth server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down auth server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("auth server shutdown: %v", err)
	}
	srvWg.Wait()
	logger.Info("auth server stopped")
}

// applyMigrations применяет встроенные .sql файлы по порядку имён (001, 002, ...).
func applyMigrations(pool *pgxpool.Pool) {
	entries, err := migrations.Files.ReadDir(".")
	if err != nil {
		logger.Errorf("read migrations dir: %v", err)
		os.Exit(1)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, name := range names {
		data, err := migrations.Files.ReadFile(name)
		if err != nil {
			logger.Errorf("read migration %s: %v", name, err)
			os.Exit(1)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			logger.Errorf("apply migration %s: %v", name, err)
			os.Exit(1)
		}
	}
	logger.Info("migrations applied")
}

func startEmbeddedPostgres(cfg *config.Config) (*embeddedpostgres.EmbeddedPostgres, error) {
	const (
		port     = 5432
		user     = "authd"
		password = "authd_secret"
		database = "authd"
	)

	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pgdata dir: %w", err)
	}

	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Username(user).
			Password(password).
			Database(database).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "embedded-pg-runtime")),
	)

	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	cfg.Database.URL = fmt.Sprintf(
		"postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		user, password, port, database,
	)
	logger.Infof("embedded PostgreSQL running on port %d", port)
	return db, nil
}
