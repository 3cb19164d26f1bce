package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/config"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/domain/account"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/domain/pharmacy"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/auth"
	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/db"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// appName tags the server's database connections.
const appName = "curenet-server"

func main() {
	rootCmd := &cobra.Command{
		Use:   "curenet-server",
		Short: "CureNet appointment booking and e-pharmacy server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(medicineCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "curenet-server", version)
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
				for _, s := range statuses {
					status := "pending"
					appliedAt := ""
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
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func withMigrator(cmd *cobra.Command, fn func(ctx context.Context, m *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = cfg.MigrationsDir
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, db.NewMigrator(pool, dir))
}

func medicineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "medicine",
		Short: "Manage the medicine catalog",
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import medicines from DailyMed",
		RunE: func(cmd *cobra.Command, args []string) error {
			drug, _ := cmd.Flags().GetString("drug")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx := context.Background()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := pharmacy.NewService(
				pharmacy.NewMedicineRepoPG(pool),
				pharmacy.NewCartRepoPG(pool),
				pharmacy.NewOrderRepoPG(pool),
				logger,
			)
			res, err := pharmacy.NewImporter(svc, cfg.DailyMedURL, logger).Import(ctx, drug)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d medicine(s), skipped %d.\n", len(res.Imported), len(res.Skipped))
			return nil
		},
	}
	importCmd.Flags().String("drug", "aspirin", "Drug name to search for")
	cmd.AddCommand(importCmd)

	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	staffCmd := &cobra.Command{
		Use:   "create-staff",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			name, _ := cmd.Flags().GetString("name")
			password, _ := cmd.Flags().GetString("password")
			admin, _ := cmd.Flags().GetBool("admin")
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := account.NewService(
				account.NewUserRepoPG(pool),
				account.NewProfileRepoPG(pool),
				auth.NewTokenIssuer(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.TokenTTL),
			)
			u, err := svc.CreateStaff(ctx, email, name, password, admin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created staff user %s (%s).\n", u.Email, u.ID)
			return nil
		},
	}
	staffCmd.Flags().String("email", "", "Email address")
	staffCmd.Flags().String("name", "", "Full name")
	staffCmd.Flags().String("password", "", "Initial password")
	staffCmd.Flags().Bool("admin", false, "Grant admin rights")
	cmd.AddCommand(staffCmd)

	return cmd
}

// openPool connects with the pool settings and session parameters from cfg.
func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns,
		db.WithApplicationName(appName),
		db.WithStatementTimeout(cfg.DBStatementTimeout),
	)
}
