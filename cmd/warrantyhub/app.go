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
	"fmt"
	"log/slog"
	"time"

	"github.com/opentrusty/warrantyhub/internal/audit"
	"github.com/opentrusty/warrantyhub/internal/catalog"
	"github.com/opentrusty/warrantyhub/internal/claim"
	"github.com/opentrusty/warrantyhub/internal/config"
	"github.com/opentrusty/warrantyhub/internal/gateway"
	"github.com/opentrusty/warrantyhub/internal/identity"
	"github.com/opentrusty/warrantyhub/internal/observability/logger"
	"github.com/opentrusty/warrantyhub/internal/observability/metrics"
	"github.com/opentrusty/warrantyhub/internal/serial"
	"github.com/opentrusty/warrantyhub/internal/store/memory"
	"github.com/opentrusty/warrantyhub/internal/store/postgres"
	"github.com/opentrusty/warrantyhub/internal/tenant"
	"github.com/opentrusty/warrantyhub/internal/warranty"
)

// backend is the set of repositories one storage engine provides
type backend struct {
	accounts   identity.AccountRepository
	stores     tenant.StoreRepository
	grants     tenant.GrantRepository
	keys       tenant.APIKeyRepository
	products   catalog.ProductRepository
	customers  catalog.CustomerRepository
	warranties warranty.Repository
	claims     claim.Repository
	events     gateway.EventLog
	history    gateway.EventReader
	audit      audit.Store
	auditLogs  audit.Reader
	ping       func(ctx context.Context) error
	close      func()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
		OTel:        cfg.Observability.OTELEnabled,
	})
	return cfg, nil
}

func connectPostgres(ctx context.Context, cfg *config.Config) (*postgres.DB, error) {
	db, err := postgres.New(ctx, postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// openBackend selects the storage engine named by DB_BACKEND
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	if cfg.Database.Backend == "memory" {
		slog.WarnContext(ctx, "using in-memory storage; data is lost on restart")
		db := memory.New()
		return &backend{
			accounts:   db.Accounts(),
			stores:     db.Stores(),
			grants:     db.Grants(),
			keys:       db.APIKeys(),
			products:   db.Products(),
			customers:  db.Customers(),
			warranties: db.Warranties(),
			claims:     db.Claims(),
			events:     db,
			history:    db,
			audit:      db,
			auditLogs:  db,
			ping:       func(context.Context) error { return nil },
			close:      func() {},
		}, nil
	}

	db, err := connectPostgres(ctx, cfg)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "connected to database")
	chatEvents := postgres.NewChatEventRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	return &backend{
		accounts:   postgres.NewAccountRepository(db),
		stores:     postgres.NewStoreRepository(db),
		grants:     postgres.NewGrantRepository(db),
		keys:       postgres.NewAPIKeyRepository(db),
		products:   postgres.NewProductRepository(db),
		customers:  postgres.NewCustomerRepository(db),
		warranties: postgres.NewWarrantyRepository(db),
		claims:     postgres.NewClaimRepository(db),
		events:     chatEvents,
		history:    chatEvents,
		audit:      auditRepo,
		auditLogs:  auditRepo,
		ping:       db.Ping,
		close:      db.Close,
	}, nil
}

// services holds the domain layer built over a backend
type services struct {
	identity  *identity.Service
	tokens    *identity.TokenService
	tenants   *tenant.Service
	resolver  *tenant.Resolver
	catalog   *catalog.Service
	warranty  *warranty.Service
	claims    *claim.Service
	auditLog  *audit.AsyncLogger
	bootstrap *identity.BootstrapService
}

func newServices(cfg *config.Config, b *backend, domain *metrics.Domain, security *logger.SecurityLogger) *services {
	auditLogger := audit.NewAsyncLogger(b.audit, audit.NewSlogLogger(), 0)

	hasher := identity.NewPasswordHasher(identity.HashParams{
		Memory:      cfg.Security.Argon2Memory,
		Iterations:  cfg.Security.Argon2Iterations,
		Parallelism: cfg.Security.Argon2Parallelism,
		SaltLength:  cfg.Security.Argon2SaltLength,
		KeyLength:   cfg.Security.Argon2KeyLength,
	})
	tokens := identity.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenLifetime)
	identityService := identity.NewService(
		b.accounts,
		hasher,
		tokens,
		security,
		cfg.Security.LockoutMaxAttempts,
		cfg.Security.LockoutDuration,
	)

	defaultFormat := serial.Format{
		Prefix:   cfg.Serial.DefaultPrefix,
		Strategy: serial.Strategy(cfg.Serial.DefaultStrategy),
	}
	tenantService := tenant.NewService(b.stores, b.grants, b.keys, auditLogger, defaultFormat)
	catalogService := catalog.NewService(b.products, b.customers, tenantService, serial.NewGenerator(b.stores, domain), auditLogger)
	warrantyService := warranty.NewService(b.warranties, catalogService, tenantService, auditLogger, domain)
	claimService := claim.NewService(b.claims, warrantyService, auditLogger, domain)

	return &services{
		identity:  identityService,
		tokens:    tokens,
		tenants:   tenantService,
		resolver:  tenant.NewResolver(tokens, b.grants, b.keys),
		catalog:   catalogService,
		warranty:  warrantyService,
		claims:    claimService,
		auditLog:  auditLogger,
		bootstrap: identity.NewBootstrapService(identityService, tenantService),
	}
}

func (s *services) runBootstrap(ctx context.Context, cfg *config.Config) error {
	return s.bootstrap.Bootstrap(ctx, identity.BootstrapConfig{
		AdminEmail:    cfg.Bootstrap.AdminEmail,
		AdminPassword: cfg.Bootstrap.AdminPassword,
		StoreName:     cfg.Bootstrap.StoreName,
	})
}

// close drains the audit worker
func (s *services) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.auditLog.Close(ctx); err != nil {
		slog.Error("failed to drain audit log", logger.Error(err))
	}
}
