// Command cadencectl runs cadence operations from an operator shell.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"outreach_backend/internal/bootstrap"
	"outreach_backend/internal/events"
	"outreach_backend/internal/notification"
	"outreach_backend/platform/config"
	"outreach_backend/platform/db"
	"outreach_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var noColor bool

var rootCmd = &cobra.Command{
	Use:           "cadencectl",
	Short:         "Operate the outbound lead cadence",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")
	rootCmd.AddCommand(cycleCmd, classifyCmd, resetCmd, draftCmd, batchesCmd, authCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

// env is the wired application for one command invocation.
type env struct {
	cfg      *config.Config
	log      *logger.Logger
	bus      *events.InMemoryBus
	outreach *bootstrap.Outreach
	pool     *pgxpool.Pool
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Env)

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	bus := events.NewInMemoryBus(log)
	outreach, err := bootstrap.Build(ctx, cfg, pool, bus, log)
	if err != nil {
		pool.Close()
		return nil, err
	}
	notification.New(outreach.Slack, log).RegisterHandlers(bus)

	return &env{cfg: cfg, log: log, bus: bus, outreach: outreach, pool: pool}, nil
}

func (e *env) Close() {
	e.bus.Wait()
	_ = e.outreach.Close()
	e.pool.Close()
}
