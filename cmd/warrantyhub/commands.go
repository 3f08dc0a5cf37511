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

	"github.com/spf13/cobra"

	"github.com/opentrusty/warrantyhub/internal/observability/logger"
	"github.com/opentrusty/warrantyhub/internal/observability/metrics"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.Backend != "postgres" {
				return fmt.Errorf("migrate requires DB_BACKEND=postgres, got %q", cfg.Database.Backend)
			}

			ctx := cmd.Context()
			db, err := connectPostgres(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := db.Migrate(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", name)
			}
			return nil
		},
	}
}

func bootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the configured admin account and store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			b, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.close()

			svc := newServices(cfg, b, metrics.Nop(), logger.NewSecurityLogger(slog.Default()))
			defer svc.close()
			return svc.runBootstrap(ctx, cfg)
		},
	}
}

func expireCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "expire-warranties",
		Short: "Mark active warranties whose end date has passed as expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				now = parsed
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			b, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.close()

			svc := newServices(cfg, b, metrics.Nop(), logger.NewSecurityLogger(slog.Default()))
			defer svc.close()

			n, err := svc.warranty.ExpireDue(ctx, now)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Expired %d warranties.\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "treat this RFC 3339 time as now")
	return cmd
}
