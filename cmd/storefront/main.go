package main

import (
	"fmt"
	"os"

	"github.com/jogardn/storefront/internal/config"
	"github.com/jogardn/storefront/internal/logging"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string

	cfg    *config.Config
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Order and contact forms with a small admin panel",
	Long: `storefront serves the public order and contact forms and an admin panel
for following orders through their status.

New orders and contact messages are emailed to the operator. When a message
cannot be sent it is appended to a plain text log instead.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envErr := godotenv.Load()

		if configPath == "" {
			configPath = os.Getenv("STOREFRONT_CONFIG")
		}
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
		if err != nil {
			return fmt.Errorf("configure logging: %w", err)
		}
		if envErr != nil && !os.IsNotExist(envErr) {
			logger.WithError(envErr).Warn("Failed to load .env file")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (or set STOREFRONT_CONFIG)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
