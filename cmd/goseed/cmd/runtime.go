package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/dbsmedya/goseed/internal/config"
	"github.com/dbsmedya/goseed/internal/database"
	"github.com/dbsmedya/goseed/internal/fixture"
	"github.com/dbsmedya/goseed/internal/lock"
	"github.com/dbsmedya/goseed/internal/logger"
	"github.com/dbsmedya/goseed/internal/plan"
	"github.com/dbsmedya/goseed/internal/seeder"
	"github.com/dbsmedya/goseed/internal/store"
)

// appFs is the filesystem for fixtures, media and objects. Tests swap it.
var appFs = afero.NewOsFs()

// loadConfig reads the config file, applies CLI overrides and validates.
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	o := GetCLIOverrides()
	cfg.ApplyOverrides(o.LogLevel, o.LogFormat, o.Environment, o.FixturesDir, o.StoreDriver)

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}

// seedRuntime holds the wired store for one command invocation.
type seedRuntime struct {
	cfg     *config.Config
	log     *logger.Logger
	backend store.Backend
	loader  *fixture.Loader
	db      *database.Manager // nil for the memory driver
	runLog  *seeder.RunLog    // nil for the memory driver
}

// allCollections lists every collection either plan writes.
func allCollections() []string {
	return append(plan.Baseline().Collections(), plan.Demo().Collections()...)
}

// openRuntime connects the configured store. The caller must Close it.
func openRuntime(ctx context.Context, cfg *config.Config, log *logger.Logger) (*seedRuntime, error) {
	objects, err := store.NewFSObjectStore(appFs, cfg.Objects.Root, cfg.Objects.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to open object store: %w", err)
	}

	rt := &seedRuntime{
		cfg:    cfg,
		log:    log,
		loader: fixture.NewLoader(appFs, cfg.Fixtures.Dir, cfg.Fixtures.MediaDir),
	}

	if cfg.Store.Driver == config.DriverMemory {
		log.Warn("Using in-memory store: nothing will be persisted")
		rt.backend = store.NewMemoryStore(cfg.Globals, objects)
		return rt, nil
	}

	rt.db = database.NewManager(&cfg.Store.Database)
	if err := rt.db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to store: %w", err)
	}
	if err := rt.db.Ping(ctx); err != nil {
		rt.Close()
		return nil, fmt.Errorf("store connection failed: %w", err)
	}

	mysqlStore := store.NewMySQLStore(rt.db.DB, cfg.Globals, objects)
	if err := mysqlStore.EnsureSchema(ctx, allCollections()...); err != nil {
		rt.Close()
		return nil, err
	}
	rt.backend = mysqlStore

	rt.runLog, err = seeder.NewRunLog(rt.db.DB, log)
	if err != nil {
		rt.Close()
		return nil, err
	}
	if err := rt.runLog.InitializeTables(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// Close releases the store connection.
func (rt *seedRuntime) Close() {
	if rt.db == nil {
		return
	}
	if err := rt.db.Close(); err != nil {
		rt.log.Warnf("Failed to close store connection: %v", err)
	}
}

// lockKinds returns the kinds a command must lock. A reset clears every
// kind that builds on the reset one.
func lockKinds(kind string, reset bool) []string {
	if reset {
		return plan.ResetKinds(kind)
	}
	return []string{kind}
}

// withRunLock runs fn under the advisory locks for kinds. The memory driver
// has nothing to share and runs fn directly.
func (rt *seedRuntime) withRunLock(ctx context.Context, kinds []string, force bool, fn func() error) error {
	if rt.db == nil {
		return fn()
	}
	if force {
		rt.log.Warnw("Skipping advisory lock acquisition (--force flag used)", "kinds", kinds)
		return fn()
	}

	err := lock.WithRunLocks(ctx, rt.db.DB, kinds, func() error {
		rt.log.Infow("Acquired advisory lock", "kinds", kinds)
		return fn()
	})
	if errors.Is(err, lock.ErrLockTimeout) {
		return fmt.Errorf("a %s run is already in progress on another instance (use --force to override)",
			strings.Join(kinds, " or "))
	}
	return err
}

func (rt *seedRuntime) orchestrator(kind string) (*seeder.Orchestrator, error) {
	upsert, err := seeder.NewUpsertEngine(rt.backend, rt.cfg.Objects.Bucket, rt.cfg.Upsert.MaxAttempts, rt.log)
	if err != nil {
		return nil, err
	}
	reset, err := rt.resetEngine()
	if err != nil {
		return nil, err
	}
	return seeder.NewOrchestrator(kind, rt.backend, rt.loader, upsert, reset, rt.log)
}

func (rt *seedRuntime) resetEngine() (*seeder.ResetEngine, error) {
	return seeder.NewResetEngine(rt.backend, rt.cfg.IsProduction(),
		rt.cfg.Reset.FetchLimit, rt.cfg.Reset.Concurrency, rt.log)
}
