package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ANGELCJR/stock-vision-sub000/internal/di"
	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

// serve wires every dependency, starts the scheduler and HTTP server, and
// blocks until ctx is cancelled or the server fails.
func (a *app) serve(ctx context.Context) error {
	a.log.Info().Str("version", version).Msg("Starting stock-vision")

	container, err := di.Wire(ctx, a.cfg, a.log)
	if err != nil {
		return fmt.Errorf("failed to wire dependencies: %w", err)
	}
	defer container.Close()

	if a.cfg.Database.Seed && a.cfg.Auth.DefaultUserID != "" {
		id := domain.Identity{UserID: a.cfg.Auth.DefaultUserID}
		if _, err := container.Seeder.Apply(ctx, id); err != nil {
			a.log.Error().Err(err).Msg("Failed to seed default portfolio")
		}
	}

	if a.cfg.Scheduler.Enabled {
		container.Scheduler.Start()
	}

	srv := server.New(server.Config{
		Log:       a.log,
		Config:    a.cfg,
		Container: container,
		Version:   version,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		a.log.Info().Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("Server forced to shutdown")
	}

	a.log.Info().Msg("Server stopped")
	return nil
}

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Database.Driver == "memory" {
				return fmt.Errorf("the memory driver has no schema to migrate")
			}
			db, err := di.OpenDatabase(a.cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(); err != nil {
				return err
			}
			a.log.Info().Str("driver", string(db.Driver())).Msg("Schema applied")
			return nil
		},
	}
}

func newSeedCommand(a *app) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the sample portfolio for a user who has none",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				userID = a.cfg.Auth.DefaultUserID
			}
			if userID == "" {
				return fmt.Errorf("--user is required when no default user is configured")
			}

			container, err := di.Wire(cmd.Context(), a.cfg, a.log)
			if err != nil {
				return err
			}
			defer container.Close()

			n, err := container.Seeder.Apply(cmd.Context(), domain.Identity{UserID: userID})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d portfolio(s) for user %s\n", n, userID)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to seed (defaults to the configured default user)")
	return cmd
}

func newBackupCommand(a *app) *cobra.Command {
	withBackups := func(ctx context.Context, fn func(*di.Container) error) error {
		if !a.cfg.Backup.Enabled {
			return fmt.Errorf("backups are not enabled (set BACKUP_ENABLED)")
		}
		container, err := di.Wire(ctx, a.cfg, a.log)
		if err != nil {
			return err
		}
		defer container.Close()
		return fn(container)
	}

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the database and upload it to object storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackups(cmd.Context(), func(c *di.Container) error {
				result, err := c.BackupService.Run(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s (%d bytes, pruned %d)\n", result.Key, result.SizeBytes, result.Pruned)
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored backups, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackups(cmd.Context(), func(c *di.Container) error {
				backups, err := c.BackupService.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, b := range backups {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d\n", b.Timestamp.Format(time.RFC3339), b.Key, b.SizeBytes)
				}
				return nil
			})
		},
	})
	return cmd
}

func newTokenCommand(a *app) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed API token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := server.IssueToken(a.cfg.Auth.JWTSecret, subject, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "user", "", "user id to embed as the token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
