package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joesh-del/video-management/internal/config"
	"github.com/joesh-del/video-management/internal/core"
	"github.com/joesh-del/video-management/internal/llm"
	"github.com/joesh-del/video-management/internal/logger"
	"github.com/joesh-del/video-management/internal/server"
	"github.com/joesh-del/video-management/internal/store"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "video-management",
	Short: "Content indexing, retrieval and collaboration service",
}

func main() {
	// No .env is fine; config falls back to file + defaults.
	_ = godotenv.Load()
	rootCmd.AddCommand(serveCmd, importOtterCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config/config.toml", "Path to TOML config")
}

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
			if cfg, err = config.Load(envPath); err == nil {
				return cfg
			}
		}
		return config.Default()
	}
	return cfg
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		log, err := logger.New(cfg.Server.Mode)
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		defer log.Sync()

		db, err := store.Open(cfg.DB.Path)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer db.Close()

		llmClient, err := llm.NewClient(context.Background(), cfg.LLM)
		if err != nil {
			return fmt.Errorf("initializing LLM client: %w", err)
		}

		engine := core.NewEngine(db, llmClient, cfg.Generation, log)
		srv := server.New(engine, log)
		r := srv.SetupRouter(cfg.Server.Mode)

		log.Info("starting server", "addr", cfg.Server.Addr, "db", cfg.DB.Path,
			"llm_provider", cfg.LLM.Provider)
		return r.Run(cfg.Server.Addr)
	},
}
