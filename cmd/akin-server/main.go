package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/akin/akin/internal/config"
	"github.com/akin/akin/internal/platform/auth"
	"github.com/akin/akin/internal/platform/db"
	"github.com/akin/akin/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "akin-server",
		Short:         "AKIN lab dashboard gateway",
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(routesCmd())
	rootCmd.AddCommand(guardCmd())
	rootCmd.AddCommand(loginCmd(), logoutCmd(), whoamiCmd(), schedulesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run session table migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				for _, s := range statuses {
					status, appliedAt := "pending", ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(ctx context.Context, fn func(context.Context, *db.Migrator) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for migrations")
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, db.NewMigrator(pool, migrations.FS))
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the role registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			printRegistry(cmd, auth.MustDefaultRegistry())
			return nil
		},
	}
}

func printRegistry(cmd *cobra.Command, reg *auth.Registry) {
	out := cmd.OutOrStdout()
	for _, role := range auth.AllRoles {
		fmt.Fprintf(out, "%s (%s)\n  landing: %s\n", role, role.Label(), reg.DefaultRoute(role))
		for _, tmpl := range reg.RoutesFor(role) {
			fmt.Fprintf(out, "  %s\n", tmpl)
		}
	}
}

func guardCmd() *cobra.Command {
	var role, token string
	cmd := &cobra.Command{
		Use:   "guard <path>",
		Short: "Evaluate one navigation against the access guard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds := auth.Credentials{Token: token}
			if strings.TrimSpace(role) != "" {
				r, err := auth.ParseRole(role)
				if err != nil {
					return err
				}
				creds.Role = r
			}
			d := auth.NewGuard(auth.MustDefaultRegistry()).Decide(creds, args[0])

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "state:  %s\n", d.State)
			if d.Allowed() {
				fmt.Fprintln(out, "action: allow")
			} else {
				fmt.Fprintf(out, "action: redirect %s\n", d.Location)
			}
			if d.Rule != "" {
				fmt.Fprintf(out, "rule:   %s\n", d.Rule)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "Caller role (CHEFE, RECEPCIONISTA, TECNICO)")
	cmd.Flags().StringVar(&token, "token", "", "Session token; empty means anonymous")
	return cmd
}
