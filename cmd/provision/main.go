package main

import (
	"fmt" // Output
	"os"  // Exit codes

	"vertex_games/internal/config"  // Configuration
	"vertex_games/internal/db"      // Database access
	"vertex_games/internal/service" // Session issuer

	"github.com/sirupsen/logrus" // Logging
	"github.com/spf13/cobra"     // CLI
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the admin provisioning command
func newRootCmd() *cobra.Command {
	var username, password string
	var migrate bool

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create the administrator account",
		Long: `Creates an admin account with the given credentials. Running it again
for an existing admin is a no-op. The password defaults to ADMIN_PASSWORD.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.LoadConfig()
			logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			if username == "" {
				username = cfg.AdminUsername
			}
			if password == "" {
				password = cfg.AdminPassword
			}
			if username == "" || password == "" {
				return fmt.Errorf("both --username and --password (or ADMIN_USERNAME/ADMIN_PASSWORD) are required")
			}

			gdb, err := db.Open(cfg.DBDriver, cfg.DSN())
			if err != nil {
				return fmt.Errorf("failed to connect to DB: %w", err)
			}
			if migrate {
				if err := db.Migrate(gdb); err != nil {
					return err
				}
			}

			created, err := service.NewAuthService(gdb, cfg.JWTSecret).ProvisionAdmin(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "admin %q created\n", username)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "admin %q already exists\n", username)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "admin username (default ADMIN_USERNAME)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "admin password (default ADMIN_PASSWORD)")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "run schema migration first")
	return cmd
}
