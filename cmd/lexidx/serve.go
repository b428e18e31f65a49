package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"lexidx/internal/config"
	"lexidx/internal/home"
	"lexidx/internal/lexicon"
	"lexidx/internal/logging"
	"lexidx/internal/lookup"
	"lexidx/internal/reload"
	"lexidx/internal/server"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	home          string
	config        string
	addr          string
	discover      []string
	levelFromFlag bool
}

func run(ctx context.Context, logger *slog.Logger, filter *logging.ComponentFilterHandler, opts serveOptions) error {
	hd, err := resolveHome(opts.home)
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	cfg, err := loadConfig(hd, opts, logger)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := applyLogConfig(filter, cfg.Log, opts.levelFromFlag); err != nil {
		return err
	}

	lexicons, err := resolveLexicons(cfg)
	if err != nil {
		return err
	}
	logger.Info("loaded config", "lexicons", len(lexicons))

	tables := make(lookup.Registry, len(lexicons))
	indexes := make([]*lexicon.Index, 0, len(lexicons))
	for _, lc := range lexicons {
		idx := lexicon.New(lexicon.Config{Name: lc.Name, Path: lc.Path, Strict: lc.Strict, Logger: logger})
		tables[lc.Name] = idx
		indexes = append(indexes, idx)
	}
	defer func() {
		for _, idx := range indexes {
			idx.Close()
		}
	}()

	// Initial loads run in parallel. A lexicon that fails to load is served
	// empty (readiness stays false) so a watcher or schedule can recover it.
	loadAll(ctx, indexes, logger)

	sched, err := reload.New(logger)
	if err != nil {
		return err
	}
	for _, lc := range lexicons {
		idx := tables[lc.Name].(*lexicon.Index)
		if lc.Watch {
			if err := idx.WatchFile(lc.Path); err != nil {
				return fmt.Errorf("watch lexicon %q: %w", lc.Name, err)
			}
		}
		if lc.ReloadCron != "" {
			if err := sched.Schedule(lc.Name, lc.ReloadCron, idx); err != nil {
				return err
			}
		}
	}
	sched.Start()
	defer func() {
		if err := sched.Stop(); err != nil {
			logger.Warn("scheduler stop error", "error", err)
		}
	}()

	srv := server.New(tables, server.Config{
		Logger:    logger,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	})
	addr := cmp.Or(opts.addr, cfg.Server.Addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ServeTCP(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("stopping server")
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Stop(stopCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// loadAll loads every index concurrently and logs the outcome.
func loadAll(ctx context.Context, indexes []*lexicon.Index, logger *slog.Logger) {
	var g errgroup.Group
	g.SetLimit(4)
	for _, idx := range indexes {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if _, err := idx.Load(idx.Path()); err != nil {
				logger.Error("initial lexicon load failed", "lexicon", idx.Name(), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// loadConfig reads the config file. Without one, the process serves every
// lexicon under the home lexicon directory, or the --discover globs.
func loadConfig(hd home.Dir, opts serveOptions, logger *slog.Logger) (config.Config, error) {
	path := cmp.Or(opts.config, hd.ConfigPath())
	cfg, err := config.Load(path)
	switch {
	case err == nil:
		logger.Info("config file", "path", path)
	case errors.Is(err, config.ErrNotFound) && opts.config == "":
		if len(opts.discover) == 0 {
			if err := hd.EnsureExists(); err != nil {
				return config.Config{}, err
			}
			opts.discover = []string{hd.DiscoverPattern()}
		}
		logger.Info("no config file, discovering lexicons", "patterns", opts.discover)
		cfg = config.Config{}.WithDefaults()
	default:
		return config.Config{}, err
	}
	cfg.Discover = append(cfg.Discover, opts.discover...)
	return cfg, nil
}

// applyLogConfig sets levels from the config file. fromFlag keeps the
// default level given on the command line.
func applyLogConfig(filter *logging.ComponentFilterHandler, lc config.LogConfig, fromFlag bool) error {
	if lc.Level != "" && !fromFlag {
		level, err := logging.ParseLevel(lc.Level)
		if err != nil {
			return err
		}
		filter.SetDefaultLevel(level)
	}
	for comp, lv := range lc.Components {
		level, err := logging.ParseLevel(lv)
		if err != nil {
			return err
		}
		filter.SetLevel(comp, level)
	}
	return nil
}

// resolveLexicons merges explicit lexicons with discovered files, in name
// order. An explicit entry wins over a discovered file of the same name.
func resolveLexicons(cfg config.Config) ([]config.LexiconConfig, error) {
	byName := make(map[string]config.LexiconConfig, len(cfg.Lexicons))
	for _, lc := range cfg.Lexicons {
		byName[lc.Name] = lc
	}

	if len(cfg.Discover) > 0 {
		found, err := lookup.Discover(cfg.Discover)
		if err != nil {
			return nil, fmt.Errorf("discover lexicons: %w", err)
		}
		for name, path := range found {
			if _, ok := byName[name]; ok {
				continue
			}
			lc := cfg.DiscoverDefaults
			lc.Name, lc.Path = name, path
			byName[name] = lc
		}
	}

	if len(byName) == 0 {
		return nil, errors.New("no lexicons found")
	}
	out := make([]config.LexiconConfig, 0, len(byName))
	for _, name := range slices.Sorted(maps.Keys(byName)) {
		out = append(out, byName[name])
	}
	return out, nil
}

// resolveHome returns a Dir from the flag value, or the platform default.
func resolveHome(flagValue string) (home.Dir, error) {
	if flagValue != "" {
		return home.New(flagValue), nil
	}
	return home.Default()
}
