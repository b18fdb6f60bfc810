package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/godelegate/internal/config"
	"github.com/dbsmedya/godelegate/internal/database"
	"github.com/dbsmedya/godelegate/internal/discovery"
	"github.com/dbsmedya/godelegate/internal/identity"
	"github.com/dbsmedya/godelegate/internal/indexer"
	"github.com/dbsmedya/godelegate/internal/lock"
	"github.com/dbsmedya/godelegate/internal/logger"
	"github.com/dbsmedya/godelegate/internal/store"
	"github.com/dbsmedya/godelegate/internal/types"
)

// app holds what the store-backed commands share: configuration, logger
// and the opened wallet store.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	store    store.Store
	registry *discovery.Registry

	// set only for store.driver mysql
	manager *database.Manager
	db      *sql.DB
}

// loadConfig reads the config file, applies CLI overrides and validates.
func loadConfig() (*config.Config, error) {
	configFile := GetConfigFile()

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat,
		overrides.Workers, overrides.BatchSize)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configFile, err)
	}
	return cfg, nil
}

// openApp loads configuration, builds the logger and opens the store.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		registry: discovery.RegistryFromConfig(cfg.Chains),
	}
	if err := a.openStore(ctx); err != nil {
		_ = log.Sync()
		return nil, err
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.Store.Driver {
	case "mysql":
		manager := database.NewManager(&a.cfg.Store.Database, a.log)
		if err := manager.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		s, err := store.NewMySQLStore(manager.DB, a.cfg.Store.Table, a.log)
		if err != nil {
			_ = manager.Close()
			return err
		}
		if err := s.InitializeTable(ctx); err != nil {
			_ = manager.Close()
			return err
		}

		a.manager, a.db, a.store = manager, manager.DB, s
	default:
		s, err := store.OpenBolt(a.cfg.Store.Path, a.log)
		if err != nil {
			return err
		}
		a.store = s
	}
	return nil
}

// Close releases the store and the database connection.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warnf("Failed to close store: %v", err)
		}
	}
	if a.manager != nil {
		if err := a.manager.Close(); err != nil {
			a.log.Warnf("Failed to close database: %v", err)
		}
	}
	_ = a.log.Sync()
}

// storeName identifies the store in lock names and log lines.
func (a *app) storeName() string {
	if a.cfg.Store.Driver == "mysql" {
		return a.cfg.Store.Database.Database + "." + a.cfg.Store.Table
	}
	return a.cfg.Store.Path
}

// withSyncLock runs fn under the advisory lock of a MySQL store. A bolt
// file is already exclusive to the process that opened it.
func (a *app) withSyncLock(ctx context.Context, force bool, fn func() error) error {
	if a.db == nil {
		return fn()
	}
	if force {
		a.log.Warn("Skipping sync lock (--force)")
		return fn()
	}
	return lock.WithSyncLock(ctx, a.db, a.storeName(), a.log, fn)
}

// resolver chains the configured display names before the indexer's
// identity endpoint.
func (a *app) resolver(client *indexer.Client) (identity.Resolver, error) {
	names, err := a.cfg.IdentityNames()
	if err != nil {
		return nil, err
	}
	for id, name := range a.cfg.RootNames() {
		if _, ok := names[id]; !ok {
			names[id] = name
		}
	}

	chain := identity.Chain{identity.Static(names)}
	if client.HasIdentity() {
		chain = append(chain, client)
	}
	return chain, nil
}

// newOrchestrator wires the indexer client, identity resolution and the
// chain registry. metrics may be nil.
func (a *app) newOrchestrator(metrics *discovery.Metrics) (*discovery.Orchestrator, error) {
	client := indexer.New(a.cfg.Indexer, a.log)

	resolver, err := a.resolver(client)
	if err != nil {
		return nil, err
	}

	return discovery.NewOrchestrator(discovery.Options{
		Registry:       a.registry,
		ProxyFetcher:   client,
		MultisigIndex:  client,
		Identity:       resolver,
		Workers:        a.cfg.Processing.Workers,
		QueryBatchSize: a.cfg.Processing.QueryBatchSize,
		RevokeMissing:  a.cfg.Processing.RevokeMissing,
		Metrics:        metrics,
		Logger:         a.log,
	})
}

// syncOnce discovers, reconciles against the stored wallets and applies the
// change set unless dryRun is set. It also returns the wallets the change set
// was computed against.
func (a *app) syncOnce(ctx context.Context, orch *discovery.Orchestrator, scope []types.ChainID, dryRun bool) (*discovery.Result, []types.KnownWallet, error) {
	roots, err := a.cfg.RootAccounts()
	if err != nil {
		return nil, nil, err
	}

	known, err := a.store.Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	res, err := orch.DiscoverScoped(ctx, roots, known, scope)
	if err != nil {
		return nil, known, fmt.Errorf("discovery failed: %w", err)
	}

	if dryRun || res.ChangeSet.IsEmpty() {
		return res, known, nil
	}
	if err := a.store.Apply(ctx, res.ChangeSet); err != nil {
		return res, known, fmt.Errorf("failed to apply change set: %w", err)
	}
	a.log.Infow("Change set applied",
		"run_id", res.RunID,
		"upserts", len(res.ChangeSet.Upserts),
		"deletions", len(res.ChangeSet.Deletions))
	return res, known, nil
}

// parseScope checks --chains values against the configured chains.
func (a *app) parseScope(names []string) ([]types.ChainID, error) {
	if len(names) == 0 {
		return nil, nil
	}
	scope := make([]types.ChainID, 0, len(names))
	for _, name := range names {
		if _, ok := a.cfg.Chains[name]; !ok {
			return nil, fmt.Errorf("chain %q is not configured", name)
		}
		scope = append(scope, types.ChainID(name))
	}
	return scope, nil
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// signalContext cancels on SIGINT/SIGTERM and logs the signal.
func signalContext(cmd *cobra.Command, log *logger.Logger) (context.Context, context.CancelFunc) {
	return database.SetupSignalHandler(commandContext(cmd), func(sig os.Signal) {
		log.Warnf("Received %s, stopping", sig)
	})
}
