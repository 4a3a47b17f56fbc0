package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tendant/content-repository/pkg/contentrepo/config"
)

// runtimeFactory builds the runtime a command operates on
type runtimeFactory func(ctx context.Context) (*config.Runtime, error)

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if err := NewRootCommand(runtimeFromEnv).Execute(); err != nil {
		os.Exit(1)
	}
}

func runtimeFromEnv(ctx context.Context) (*config.Runtime, error) {
	serverConfig, err := config.Load(config.WithEnv(""), config.WithMetrics(false))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return serverConfig.BuildRuntime(ctx, logger)
}

// NewRootCommand creates the admin command tree
func NewRootCommand(newRuntime runtimeFactory) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "admin",
		Short: "Content repository admin CLI",
		Long: `Content repository admin CLI

Stores, removes and recovers entities directly against the configured
database. Reads DATABASE_URL, STORAGE_URL and ACCESS_MODE from the
environment or a .env file in the current directory.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("actor", "", "Actor performing the operation")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		NewStoreCommand(newRuntime),
		NewRemoveCommand(newRuntime),
		NewRecoverCommand(newRuntime),
		NewRecycleBinCommand(newRuntime),
		NewHistoryCommand(newRuntime),
		NewChildrenCommand(newRuntime),
		NewLockCommand(newRuntime),
		NewUnlockCommand(newRuntime),
		NewVersionsCommand(newRuntime),
		NewPruneCommand(newRuntime),
	)

	return rootCmd
}
