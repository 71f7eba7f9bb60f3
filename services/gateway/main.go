// Gateway перед сервисом авторизации: TLS-терминация, rate limit по IP, логирование запросов.
package main

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/authd/internal/config"
	"github.com/authd/internal/logger"
	"github.com/authd/internal/middleware"
)

func main() {
	logger.SetPrefix("gateway")
	logger.Info("starting gateway")
	cfg := config.Load()

	target, err := url.Parse(cfg.AuthServiceURL)
	if err != nil {
		logger.Errorf("parse AUTH_SERVICE_URL: %v", err)
		os.Exit(1)
	}
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Errorf("proxy %s %s: %v", r.Method, r.URL.Path, err)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"upstream unavailable"}`))
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog)
	r.Use(middleware.RecoverJSON)
	r.Use(middleware.RateLimitByIP(cfg.RateLimitPerMinute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Handle("/*", proxy)

	addr := cfg.ServerAddr
	if v := os.Getenv("GATEWAY_ADDR"); v != "" {
		addr = v
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	useTLS := cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != ""
	var srvWg sync.WaitGroup
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		var err error
		if useTLS {
			logger.Infof("gateway listening on %s (TLS), upstream %s", addr, cfg.AuthServiceURL)
			err = srv.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			logger.Infof("gateway listening on %s (без TLS — задайте TLS_CERT_FILE/TLS_KEY_FILE), upstream %s", addr, cfg.AuthServiceURL)
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("gateway server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down gateway...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("gateway shutdown: %v", err)
	}
	srvWg.Wait()
	logger.Info("gateway stopped")
}
