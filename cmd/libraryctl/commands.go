package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/biblioteka/backend/internal/app/repositories"
	"github.com/biblioteka/backend/internal/bootstrap"
	"github.com/biblioteka/backend/internal/config"
	"github.com/biblioteka/backend/internal/db"
	pkgAuth "github.com/biblioteka/backend/internal/pkg/auth"
	"github.com/biblioteka/backend/internal/pkg/helpers"
	"github.com/biblioteka/backend/internal/seed"
)

type rootOptions struct {
	configPath string
	pretty     bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "libraryctl",
		Short:         "Maintenance tasks for the library backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", bootstrap.DefaultConfigPath, "path to the YAML config file")
	root.PersistentFlags().BoolVar(&opts.pretty, "pretty", term.IsTerminal(int(os.Stderr.Fd())), "human-readable log output")

	root.AddCommand(
		newMigrateCommand(opts),
		newSeedCommand(opts),
		newSweepCommand(opts),
		newReconcileCommand(opts),
		newTokenCommand(opts),
	)
	return root
}

func (o *rootOptions) load() (*config.Config, zerolog.Logger, error) {
	return bootstrap.LoadConfigAndSetupLogger(o.configPath, o.pretty)
}

// withDatabase loads config, connects and closes the pool once fn returns
func (o *rootOptions) withDatabase(ctx context.Context, fn func(cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) error) error {
	cfg, lgr, err := o.load()
	if err != nil {
		return err
	}
	database, err := db.NewPostgresDB(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer database.Close()
	return fn(cfg, database, lgr)
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withDatabase(cmd.Context(), func(cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) error {
				applied, err := bootstrap.RunMigrations(cmd.Context(), cfg, database, lgr)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
				return nil
			})
		},
	}
}

func newSeedCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default admin account and branch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withDatabase(cmd.Context(), func(_ *config.Config, database *db.PostgresDB, lgr zerolog.Logger) error {
				admin, err := seed.CreateDefaultData(cmd.Context(), repositories.NewRepositories(database), lgr)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "admin user: id=%d username=%s\n", admin.ID, admin.Username)
				return nil
			})
		},
	}
}

func newSweepCommand(opts *rootOptions) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "sweep-overdue",
		Short: "Mark overdue loans and copies, expire missed pickups and close past room bookings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withDatabase(cmd.Context(), func(cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) error {
				deps, err := bootstrap.BuildDependencies(cfg, database, lgr)
				if err != nil {
					return err
				}
				result, err := deps.Services.Circulation.Sweep(cmd.Context())
				if err != nil {
					return err
				}
				completed, err := deps.Services.Branches.CompletePastBookings(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "overdue loans: %d\noverdue copies: %d\nexpired bookings: %d\ncompleted room bookings: %d\n",
					result.OverdueLoans, result.OverdueCopies, result.ExpiredBookings, completed)

				if !list {
					return nil
				}
				loans, err := deps.Repos.BookLoans.ListOverdue(cmd.Context())
				if err != nil {
					return err
				}
				for _, l := range loans {
					fmt.Fprintf(out, "loan %d user=%d copy=%d due=%s\n", l.ID, l.UserID, l.BookCopyID, l.DueDate.Format(time.DateOnly))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print every loan currently overdue")
	return cmd
}

func newReconcileCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile-fines",
		Short: "Check unpaid fines against the payment gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withDatabase(cmd.Context(), func(cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) error {
				deps, err := bootstrap.BuildDependencies(cfg, database, lgr)
				if err != nil {
					return err
				}
				result, err := deps.Services.Fines.ReconcileAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "checked: %d\nupdated: %d\nfailed: %d\n", result.Checked, result.Updated, result.Failed)
				return nil
			})
		},
	}
}

type tokenOptions struct {
	userID    int64
	username  string
	role      string
	askSecret bool
}

func newTokenCommand(opts *rootOptions) *cobra.Command {
	topts := &tokenOptions{}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a staff account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			return issueToken(cmd, cfg, topts)
		},
	}
	cmd.Flags().Int64Var(&topts.userID, "user-id", 0, "user id placed in the token")
	cmd.Flags().StringVar(&topts.username, "username", seed.DefaultAdminUsername, "username placed in the token")
	cmd.Flags().StringVar(&topts.role, "role", pkgAuth.RoleAdmin, "role: admin, librarian or reader")
	cmd.Flags().BoolVar(&topts.askSecret, "ask-secret", false, "read the signing secret from the terminal instead of the config")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func issueToken(cmd *cobra.Command, cfg *config.Config, topts *tokenOptions) error {
	switch topts.role {
	case pkgAuth.RoleAdmin, pkgAuth.RoleLibrarian, pkgAuth.RoleReader:
	default:
		return fmt.Errorf("unknown role %q", topts.role)
	}

	secret := cfg.JWT.Secret
	if topts.askSecret {
		s, err := readSecret(cmd, "Signing secret: ")
		if err != nil {
			return err
		}
		secret = s
	}

	jwtService := pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})
	token, expiresAt, err := jwtService.GenerateAccessToken(topts.userID, topts.username, topts.role)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))
	return nil
}

// readSecret reads a masked line from the terminal
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("--ask-secret needs an interactive terminal")
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	secret := strings.TrimSpace(string(raw))
	if secret == "" {
		return "", fmt.Errorf("empty secret")
	}
	return secret, nil
}
