package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storepulse/config"
	"storepulse/internal/db"
	"storepulse/internal/logging"
	"storepulse/internal/store"
)

// Set by the linker at build time.
var (
	version = "dev"
	commit  = "none"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "storepulse",
	Short:         "Compute store uptime and downtime reports.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of storepulse.",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("storepulse %s (%s, %s)\n", version, commit, runtime.Version())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default $CONFIG_PATH or ./config/config.yaml)")
	rootCmd.AddCommand(serveCmd, seedCmd, inspectCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app holds what every subcommand needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	store  store.Store
}

func (a *app) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	_ = a.logger.Sync()
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "./config/config.yaml"
}

func bootstrap() (*app, error) {
	path := resolveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	logger.Info("configuration loaded", zap.String("path", path))

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &app{cfg: cfg, logger: logger, db: gormDB, store: store.NewGormStore(gormDB)}, nil
}
