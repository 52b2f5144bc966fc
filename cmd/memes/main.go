package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/memes/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "memes",
	Short:   "Meme upload service",
	Long: `memes stores meme images in an object store bucket and their
metadata in a relational table, and serves them through presigned URLs.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file paths, merged left to right (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "database type: sqlite, postgres (default: sqlite, env: MEMES_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (default: memes.db, env: MEMES_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("storage-type", "", "blob backend: minio, filesystem (default: minio, env: MEMES_STORAGE_TYPE)")
	rootCmd.PersistentFlags().String("storage-path", "", "filesystem blob directory (default: ./data, env: MEMES_STORAGE_FILESYSTEM_PATH)")
	rootCmd.PersistentFlags().String("bucket", "", "bucket name (default: memes-storage, env: MEMES_STORAGE_BUCKET)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: MEMES_LOG_LEVEL)")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text, json, charm (env: MEMES_LOG_FORMAT)")
}

// loadConfig reads the configuration, sets up logging and stores the config
// in the command context for subcommands.
func loadConfig(cmd *cobra.Command, _ []string) error {
	configFiles, _ := cmd.Flags().GetStringSlice("config")

	cfg, err := config.Load(configFiles, cmd.Flags())
	if err != nil {
		return err
	}

	setupLogging(cfg.Log)
	cmd.SetContext(config.WithContext(cmd.Context(), cfg))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
