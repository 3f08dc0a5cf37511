// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/opentrusty/warrantyhub/internal/certificate"
	"github.com/opentrusty/warrantyhub/internal/chat"
	"github.com/opentrusty/warrantyhub/internal/config"
	"github.com/opentrusty/warrantyhub/internal/gateway"
	"github.com/opentrusty/warrantyhub/internal/observability/logger"
	"github.com/opentrusty/warrantyhub/internal/observability/metrics"
	"github.com/opentrusty/warrantyhub/internal/observability/tracing"
	"github.com/opentrusty/warrantyhub/internal/session"
	"github.com/opentrusty/warrantyhub/internal/store/objectstore"
	transportHTTP "github.com/opentrusty/warrantyhub/internal/transport/http"
	"github.com/opentrusty/warrantyhub/internal/warranty"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and chat webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func runServer(cfg *config.Config) error {
	ctx := context.Background()
	slog.Info("starting warrantyhub", "version", Version)

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		Endpoint:       cfg.Observability.OTLPEndpoint,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   cfg.Observability.SamplingRate,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
		tracer = tracing.Noop()
	}
	defer tracer.Shutdown(ctx)

	// Initialize meters
	meter, err := metrics.New(ctx, metrics.Config{Enabled: cfg.Observability.OTELEnabled}, cfg.Observability.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize meter: %w", err)
	}
	domain, err := metrics.NewDomain(meter)
	if err != nil {
		return fmt.Errorf("failed to register domain metrics: %w", err)
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(cfg.Observability.ServiceName, registry)

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	security := logger.NewSecurityLogger(slog.Default())
	svc := newServices(cfg, b, domain, security)
	defer svc.close()

	if err := svc.runBootstrap(ctx, cfg); err != nil {
		slog.Error("bootstrap failed", logger.Error(err))
	}

	// Outbound messaging
	var messenger gateway.Messenger = gateway.Discard{}
	if cfg.Messaging.APIURL != "" {
		messenger = gateway.NewKWICClient(gateway.KWICConfig{
			BaseURL:     cfg.Messaging.APIURL,
			APIKey:      cfg.Messaging.APIKey,
			PhoneNumber: cfg.Messaging.PhoneNumber,
			Timeout:     cfg.Messaging.Timeout,
		})
	} else {
		slog.Warn("messaging gateway not configured; replies are dropped")
	}
	messenger = gateway.NewLogged(messenger, b.events)

	// Post-registration artifacts
	if cfg.Storage.Enabled {
		objects, err := objectstore.New(ctx, objectstore.Config{
			Endpoint:      cfg.Storage.Endpoint,
			AccessKey:     cfg.Storage.AccessKey,
			SecretKey:     cfg.Storage.SecretKey,
			Bucket:        cfg.Storage.Bucket,
			UseSSL:        cfg.Storage.UseSSL,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			return err
		}
		svc.warranty.Use(warranty.ArtifactsHook(certificate.NewPipeline(objects), b.warranties))
	}
	svc.warranty.Use(warranty.NotificationHook(messenger))

	// Chat sessions
	var sessions session.Store
	switch cfg.Chat.SessionStore {
	case "redis":
		rdb := session.NewRedisClient(session.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer closeRedis(rdb)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		sessions = session.NewRedisStore(rdb, cfg.Chat.SessionTTL)
	default:
		mem := session.NewMemoryStore(cfg.Chat.SessionTTL, cfg.Chat.SweepInterval)
		defer mem.Close()
		sessions = mem
	}

	engine := chat.NewEngine(sessions, messenger, b.events, svc.warranty, svc.claims, svc.catalog, chat.Options{
		TurnTimeout: cfg.Chat.TurnTimeout,
		Tracer:      tracer,
		Metrics:     domain,
	})

	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	defer rateLimiter.Close()

	handler := transportHTTP.NewHandler(transportHTTP.Services{
		Identity:  svc.identity,
		Resolver:  svc.resolver,
		Tenants:   svc.tenants,
		Catalog:   svc.catalog,
		Warranty:  svc.warranty,
		Claims:    svc.claims,
		Chat:      engine,
		AuditLogs: b.auditLogs,
		History:   b.history,
		Security:  security,
		Webhook: transportHTTP.WebhookConfig{
			Secret:      cfg.Messaging.WebhookSecret,
			VerifyToken: cfg.Messaging.VerifyToken,
		},
		Readiness:  b.ping,
		TrustProxy: cfg.Server.TrustProxyHeaders,
	})
	router := transportHTTP.NewRouter(handler, rateLimiter, httpMetrics)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Expire warranties hourly
	expireCtx, stopExpiry := context.WithCancel(ctx)
	defer stopExpiry()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-expireCtx.Done():
				return
			case now := <-ticker.C:
				if _, err := svc.warranty.ExpireDue(expireCtx, now); err != nil {
					slog.ErrorContext(expireCtx, "failed to expire warranties", logger.Error(err))
				}
			}
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"), "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
	return nil
}

func closeRedis(rdb *redis.Client) {
	if err := rdb.Close(); err != nil {
		slog.Error("failed to close redis client", logger.Error(err))
	}
}
