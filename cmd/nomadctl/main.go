// Command nomadctl runs operational tasks against the budget backend's
// database, Redis and cover bucket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/config"
	"github.com/NomadCrew/nomad-budget-backend/internal/app"
	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/spf13/cobra"
)

const (
	exitSuccess = 0
	exitError   = 1
)

// loadConfig is replaced in tests.
var loadConfig = config.LoadConfig

func main() {
	logger.InitLogger()
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(exitError)
	}
	os.Exit(exitSuccess)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nomadctl",
		Short:         "Operational tasks for the NomadCrew budget backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMigrateCmd(),
		newRemindCmd(),
		newReportCmd(),
		newCoversCmd(),
		newConfigCmd(),
	)
	return root
}

// withApp loads the config, builds the application and closes it after fn.
func withApp(ctx context.Context, fn func(*app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		a.Close(closeCtx)
	}()
	return fn(a)
}
