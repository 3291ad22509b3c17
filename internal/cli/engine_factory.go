package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/adapters/file"
	"github.com/aretw0/lattice/internal/config"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/adapters/redis"
	"github.com/aretw0/lattice/pkg/adapters/remote"
	"github.com/aretw0/lattice/pkg/graph"
	"github.com/aretw0/lattice/pkg/persistence/middleware"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// Options are the flags shared by every command.
type Options struct {
	ConfigPath string
	Dir        string
	Debug      bool
}

// stack is an engine plus the resources it holds.
type stack struct {
	engine   *lattice.Engine
	registry *prometheus.Registry
	logger   *slog.Logger
	cfg      *config.Config
	closers  []func() error
}

func (s *stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// setup loads the configuration and builds an engine from it.
func setup(opts Options) (*stack, error) {
	path := opts.ConfigPath
	if path == "" {
		path = filepath.Join(opts.Dir, "lattice.yaml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	level, _ := cfg.Level()
	format, _ := logging.ParseFormat(cfg.LogFormat)
	logger := createLogger(opts.Debug, level, format)
	return createEngine(cfg, opts, logger)
}

// createEngine initializes a lattice engine with standard CLI conventions.
func createEngine(cfg *config.Config, opts Options, logger *slog.Logger) (*stack, error) {
	s := &stack{
		registry: prometheus.NewRegistry(),
		logger:   logger,
		cfg:      cfg,
	}

	engineOpts := []lattice.Option{
		lattice.WithLogger(logger),
		lattice.WithMetrics(s.registry),
		lattice.WithMaxHistory(cfg.History.MaxSize),
		lattice.WithPropagation(cfg.Graph.Propagate),
		lattice.WithGraphOptions(
			graph.WithFanIn(cfg.Graph.AllowFanIn),
			graph.WithSelfLoops(cfg.Graph.AllowSelfLoops),
			graph.WithCycles(cfg.Graph.AllowCycles),
		),
		lattice.WithOnFileChange(fileChangeLogger(logger)),
	}
	if opts.Debug {
		engineOpts = append(engineOpts, lattice.WithLifecycleHooks(createDebugHooks(logger)))
	}
	if len(cfg.Layers.Disabled) > 0 {
		engineOpts = append(engineOpts, lattice.WithDisabledLayers(cfg.Layers.Disabled))
	}

	store, locker, err := s.createStore(cfg, opts.Dir)
	if err != nil {
		return nil, err
	}
	engineOpts = append(engineOpts, lattice.WithStore(store))
	if locker != nil {
		engineOpts = append(engineOpts, lattice.WithLocker(locker))
	}

	key, err := cfg.EncryptionKey()
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}
	if key != nil {
		engineOpts = append(engineOpts, lattice.WithStoreMiddleware(
			middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}),
		))
	}

	if cfg.Remote.URL != "" {
		engineOpts = append(engineOpts, lattice.WithComputer(remote.NewClient(cfg.Remote.URL,
			remote.WithTimeout(cfg.Remote.Timeout),
			remote.WithLogger(logger),
		)))
	}

	engine, err := lattice.New(engineOpts...)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("error initializing engine: %w", err), s.Close())
	}
	s.engine = engine
	return s, nil
}

func (s *stack) createStore(cfg *config.Config, dir string) (ports.BlobStore, ports.DistributedLocker, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return memory.NewStore(), nil, nil
	case config.BackendFile:
		base := cfg.Store.Dir
		if !filepath.IsAbs(base) && dir != "" {
			base = filepath.Join(dir, base)
		}
		return file.New(base), nil, nil
	case config.BackendRedis:
		rc := cfg.Store.Redis
		store := redis.New(rc.Addr, rc.Password, rc.DB, redis.WithPrefix(rc.Prefix), redis.WithTTL(rc.TTL))
		s.closers = append(s.closers, store.Close)
		return store, redis.NewLocker(store.Client(), rc.Prefix), nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
