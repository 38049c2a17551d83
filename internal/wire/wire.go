// Package wire provides dependency injection for the icvial application.
// It creates singleton services with lazy initialization.
package wire

import (
	"database/sql"
	"io"
	"log"
	"os"
	"sync"

	"go.uber.org/zap"

	cliadapter "github.com/example/icvial/internal/adapters/cli"
	"github.com/example/icvial/internal/adapters/csvtable"
	"github.com/example/icvial/internal/adapters/filesystem"
	"github.com/example/icvial/internal/adapters/sqlite"
	"github.com/example/icvial/internal/adapters/terminal"
	"github.com/example/icvial/internal/app"
	"github.com/example/icvial/internal/config"
	"github.com/example/icvial/internal/db"
	"github.com/example/icvial/internal/logging"
	"github.com/example/icvial/internal/ports/primary"
)

var (
	cfg              = config.Default()
	logger           *zap.Logger
	database         *sql.DB
	reconcileService primary.ReconcileService
	runService       primary.RunService
	once             sync.Once
)

// Configure sets the configuration used to build services.
// It has no effect once a service has been requested.
func Configure(c *config.Config) {
	if c != nil {
		cfg = c
	}
}

// Config returns the active configuration.
func Config() *config.Config {
	return cfg
}

// Logger returns the singleton diagnostic logger.
func Logger() *zap.Logger {
	once.Do(initServices)
	return logger
}

// ReconcileService returns the singleton ReconcileService instance.
func ReconcileService() primary.ReconcileService {
	once.Do(initServices)
	return reconcileService
}

// RunService returns the singleton RunService instance.
func RunService() primary.RunService {
	once.Do(initServices)
	return runService
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	var err error
	logger, err = logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	ledgerPath, err := cfg.ResolveLedgerPath()
	if err != nil {
		logger.Fatal("failed to resolve ledger path", zap.Error(err))
	}
	database, err = db.Open(ledgerPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.String("path", ledgerPath), zap.Error(err))
	}

	// Create adapters (secondary ports)
	runRepo := sqlite.NewRunRepository(database)
	codec := csvtable.NewCodec(cfg.BreakColumn, cfg.DelimiterRune())
	operator := terminal.NewOperator(os.Stdin, os.Stdout, cfg.MaxAttempts)

	// Create effect executor with injected repositories
	executor := app.NewEffectExecutor(runRepo, logger)

	// Create services (primary ports implementation)
	reconcileService = app.NewReconcileService(codec, operator, filesystem.NewOutputStore(), executor, logger)
	runService = app.NewRunService(runRepo)
}

// Close flushes the logger and closes the ledger, if they were opened.
func Close() {
	if logger != nil {
		_ = logger.Sync()
	}
	if database != nil {
		database.Close()
	}
}

// ReconcileAdapter returns a new ReconcileAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func ReconcileAdapter() *cliadapter.ReconcileAdapter {
	return ReconcileAdapterWithOutput(os.Stdout)
}

// ReconcileAdapterWithOutput returns a new ReconcileAdapter writing to the given output.
func ReconcileAdapterWithOutput(out io.Writer) *cliadapter.ReconcileAdapter {
	once.Do(initServices)
	return cliadapter.NewReconcileAdapter(reconcileService, out)
}

// RunAdapter returns a new RunAdapter writing to stdout.
func RunAdapter() *cliadapter.RunAdapter {
	return RunAdapterWithOutput(os.Stdout)
}

// RunAdapterWithOutput returns a new RunAdapter writing to the given output.
func RunAdapterWithOutput(out io.Writer) *cliadapter.RunAdapter {
	once.Do(initServices)
	return cliadapter.NewRunAdapter(runService, out)
}
