package main

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"storyboard/internal/client"
	"storyboard/internal/config"
	"storyboard/internal/generation"
	"storyboard/internal/logging"
	"storyboard/internal/notify"
	"storyboard/internal/project"
	"storyboard/internal/store"
	"storyboard/internal/tasks"
	"storyboard/internal/tracker"
	"storyboard/internal/types"
)

type runtimeOptions struct {
	logger logging.Logger
	// bell receives terminal bell notices; nil means stderr of the caller.
	bell  io.Writer
	sinks []notify.Sink
	// extraMethods are enabled on top of the configured notification methods.
	extraMethods []string
}

type runtimeFactory func(cfg config.CoreConfig, opts runtimeOptions) (*storyboardRuntime, error)

// storyboardRuntime is the wired client core every command runs against.
type storyboardRuntime struct {
	cfg        config.CoreConfig
	logger     logging.Logger
	dispatcher *notify.Dispatcher
	client     *client.Client
	repo       store.Repository
	registry   *tasks.Registry
	project    *project.Cache
	controller *generation.Controller
	engine     *tracker.Engine
}

func newRuntime(cfg config.CoreConfig, opts runtimeOptions) (*storyboardRuntime, error) {
	logger := opts.logger
	if logger == nil {
		logger = logging.Nop()
	}

	settings := cfg.NotificationSettings()
	for _, method := range opts.extraMethods {
		settings.Methods = append(settings.Methods, types.NotificationMethod(method))
	}
	sinks := append(notify.DefaultSinks(logger, opts.bell), opts.sinks...)
	dispatcher := notify.NewDispatcher(settings, sinks, logger)

	repo, err := openRepository(cfg)
	if err != nil {
		return nil, err
	}

	api := client.New(cfg.BaseURL(),
		client.WithPushURL(cfg.PushURL()),
		client.WithRequestTimeout(cfg.RequestTimeout()),
		client.WithProviderCacheTTL(cfg.ProviderCacheTTL()),
		client.WithEmitter(dispatcher),
		client.WithLogger(logger.With(logging.F("component", "client"))),
	)

	cache := project.New(api, repo.GenOptions(),
		project.WithDefaults(cfg.DefaultGenOptions()),
		project.WithLastProject(repo.LastProject()),
		project.WithLogger(logger.With(logging.F("component", "project"))),
	)
	registry := tasks.NewRegistry(api,
		tasks.WithEmitter(dispatcher),
		tasks.WithRefresher(cache),
		tasks.WithLogger(logger.With(logging.F("component", "tasks"))),
	)
	engine := tracker.New(api, registry, tracker.Config{
		PushEnabled:  cfg.PushEnabled(),
		PollInterval: cfg.PollInterval(),
		ReconnectMax: cfg.ReconnectMax(),
	},
		tracker.WithEmitter(dispatcher),
		tracker.WithLogger(logger.With(logging.F("component", "tracker"))),
	)

	return &storyboardRuntime{
		cfg:        cfg,
		logger:     logger,
		dispatcher: dispatcher,
		client:     api,
		repo:       repo,
		registry:   registry,
		project:    cache,
		controller: generation.NewController(logger.With(logging.F("component", "generation"))),
		engine:     engine,
	}, nil
}

func openRepository(cfg config.CoreConfig) (store.Repository, error) {
	storagePath, err := cfg.StoragePath()
	if err != nil {
		return nil, err
	}
	paths := store.RepositoryPaths{DBPath: storagePath}
	if cfg.StorageBackend() == config.StorageBackendFile {
		paths = store.RepositoryPaths{
			GenOptionsPath:  storagePath,
			LastProjectPath: filepath.Join(filepath.Dir(storagePath), "last_project.json"),
		}
	}
	return store.Open(cfg.StorageBackend(), paths, cfg.DefaultGenOptions())
}

// resolveProjectID prefers the explicit flag and falls back to the project
// opened last time.
func (r *storyboardRuntime) resolveProjectID(ctx context.Context, flagValue string) string {
	if id := strings.TrimSpace(flagValue); id != "" {
		return id
	}
	id, err := r.repo.LastProject().Load(ctx)
	if err != nil {
		r.logger.Warn("last_project_load_failed", logging.Err(err))
		return ""
	}
	return id
}

func (r *storyboardRuntime) Close() {
	if r == nil {
		return
	}
	if r.client != nil {
		r.client.Close()
	}
	if r.repo != nil {
		if err := r.repo.Close(); err != nil {
			r.logger.Warn("repository_close_failed", logging.Err(err))
		}
	}
}
