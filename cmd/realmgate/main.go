// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

// realmgate is the authorization service binary. It serves the decision
// endpoint and the management API over a single listener.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/realmgate/realmgate/internal/api/handlers"
	"github.com/realmgate/realmgate/internal/config"
	"github.com/realmgate/realmgate/internal/evaluator"
	"github.com/realmgate/realmgate/internal/logging"
	"github.com/realmgate/realmgate/internal/rbac"
	"github.com/realmgate/realmgate/internal/server"
	"github.com/realmgate/realmgate/internal/store"
)

var flagMappings = map[string]string{
	"addr":      "server.addr",
	"database":  "database.url",
	"log-level": "logging.level",
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "realmgate",
		Short:         "RealmGate authorization service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newConfigCmd())
	return root
}

func newConfigCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Dump(cmd.OutOrStdout(), configPath, cmd.Flags(), flagMappings)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML configuration file")
	cmd.Flags().String("addr", "", "listen address (overrides configuration)")
	cmd.Flags().String("database", "", "database URL (overrides configuration)")
	cmd.Flags().String("log-level", "", "log level (overrides configuration)")
	return cmd
}

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, cmd.Flags(), flagMappings)
			if err != nil {
				return err
			}
			logger := logging.New(logging.Config{
				Level:     cfg.Logging.Level,
				Format:    cfg.Logging.Format,
				AddSource: cfg.Logging.AddSource,
			})

			st, err := store.Open(cfg.Database.URL, logger)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			if err := st.Migrate(); err != nil {
				return fmt.Errorf("migrating schema: %w", err)
			}

			eval, err := evaluator.New()
			if err != nil {
				return fmt.Errorf("initializing evaluator: %w", err)
			}
			engine := rbac.New(st, eval, logger)
			handler := handlers.New(st, engine, logger, cfg.Auth.JWTSecret)

			srv := server.New(server.Config{
				Addr:            cfg.Server.Addr,
				ReadTimeout:     cfg.Server.ReadTimeout,
				WriteTimeout:    cfg.Server.WriteTimeout,
				IdleTimeout:     cfg.Server.IdleTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			}, handler.Routes(), logger)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML configuration file")
	cmd.Flags().String("addr", "", "listen address (overrides configuration)")
	cmd.Flags().String("database", "", "database URL (overrides configuration)")
	cmd.Flags().String("log-level", "", "log level (overrides configuration)")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, cmd.Flags(), flagMappings)
			if err != nil {
				return err
			}
			logger := logging.New(logging.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
			})

			st, err := store.Open(cfg.Database.URL, logger)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			if err := st.Migrate(); err != nil {
				return fmt.Errorf("migrating schema: %w", err)
			}
			logger.Info("schema migrated", "database", cfg.Database.URL)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML configuration file")
	cmd.Flags().String("database", "", "database URL (overrides configuration)")
	return cmd
}
