package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pizzeria",
	Short: "Pizza ordering API",
	Long: `Pizza ordering API: catalog and stock, orders, payments, promotions,
loyalty points, subscriptions and realtime notifications.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd, promoteCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
