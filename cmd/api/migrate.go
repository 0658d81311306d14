package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/slicehouse/pizzeria/internal/auth"
	"github.com/slicehouse/pizzeria/internal/persistence"
	"github.com/slicehouse/pizzeria/internal/service"
)

var (
	listOnly    bool
	revokeAdmin bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending SQL migrations",
	Long: `Apply the SQL migrations embedded in the binary, in lexical order.
Already applied files are recorded in schema_migrations and skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listOnly {
			names, err := persistence.MigrationNames()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		}
		return runMigrate(cmd.Context())
	},
}

var promoteCmd = &cobra.Command{
	Use:   "promote <username>",
	Short: "Grant administrator rights to a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPromote(cmd.Context(), args[0], !revokeAdmin)
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&listOnly, "list", false, "List embedded migrations without applying them")
	promoteCmd.Flags().BoolVar(&revokeAdmin, "revoke", false, "Remove administrator rights instead")
}

func runMigrate(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	_, logger, b, err := bootstrap(ctx, false)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	defer b.Close()

	return persistence.RunMigrations(ctx, b.pg.Pool, logger)
}

func runPromote(ctx context.Context, username string, admin bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger, b, err := bootstrap(ctx, false)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	defer b.Close()

	svc := service.NewAuthService(service.AuthDependencies{
		Store:  b.store,
		Tokens: auth.NewTokenManager(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL()),
		Logger: logger,
	})
	user, err := svc.SetAdmin(ctx, username, admin)
	if err != nil {
		return err
	}
	logger.Info("admin flag updated", zap.String("username", user.Username), zap.Bool("is_admin", user.IsAdmin))
	return nil
}
