package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/spoolkit/spool/config"
	"github.com/spoolkit/spool/job"
	"github.com/spoolkit/spool/llm"
	"github.com/spoolkit/spool/metrics"
	"github.com/spoolkit/spool/model"
	"github.com/spoolkit/spool/plan"
	"github.com/spoolkit/spool/progress"
	"github.com/spoolkit/spool/store/sqlite"
)

// App wires the pipeline together for the CLI: config, model registry,
// generation client, job store and runner.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	store    *sqlite.Store
	registry *model.Registry
	client   *llm.Client
	runner   *job.Runner

	natsConn *nats.Conn
}

// newApp builds an App from the resolved configuration. An explicit
// config path overrides the layered project/user lookup.
func newApp(configPath string) (*App, error) {
	logger := slog.Default()

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.NewLoader(logger).Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	registry, err := loadRegistry(cfg)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.NewStore(cfg.Store.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	clientOpts := []llm.ClientOption{
		llm.WithLogger(logger),
		llm.WithObserver(m),
	}
	if cfg.Models.Timeout > 0 {
		clientOpts = append(clientOpts, llm.WithHTTPClient(&http.Client{Timeout: cfg.Models.Timeout}))
	}
	client := llm.NewClient(registry, clientOpts...)

	planner, err := plan.New(client, plan.Config{
		MinUnits:    cfg.Pipeline.MinUnits,
		MaxUnitSize: cfg.Pipeline.MaxUnitSize,
	}, plan.WithLogger(logger))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build planner: %w", err)
	}

	app := &App{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		registry: registry,
		client:   client,
	}

	sinks := progress.MultiSink{consoleSink()}
	if cfg.NATS.URL != "" {
		conn, err := nats.Connect(cfg.NATS.URL, nats.Name(appName))
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.NATS.URL, err)
		}
		app.natsConn = conn
		sinks = append(sinks, progress.NewNATSSink(conn, progress.WithNATSLogger(logger)))
	}

	runner, err := job.NewRunner(store, client, planner, cfg.RunnerConfig(),
		job.WithLogger(logger),
		job.WithSink(sinks),
		job.WithObserver(m),
	)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("build runner: %w", err)
	}
	app.runner = runner

	return app, nil
}

// Close releases the store and the NATS connection.
func (a *App) Close() {
	if a.natsConn != nil {
		a.natsConn.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

func loadRegistry(cfg *config.Config) (*model.Registry, error) {
	if cfg.Models.RegistryPath == "" {
		return model.NewDefaultRegistry(), nil
	}
	registry, err := model.LoadFromFile(cfg.Models.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("load model registry %s: %w", cfg.Models.RegistryPath, err)
	}
	return registry, nil
}

// consoleSink renders progress events as single status lines on stderr,
// leaving stdout for the artifact.
func consoleSink() progress.Sink {
	return progress.SinkFunc(func(ev progress.Event) {
		switch ev.Phase {
		case progress.PhaseProcessing, progress.PhaseWindowing:
			if ev.Total > 0 {
				fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", ev.Current, ev.Total, ev.Message)
				return
			}
			fmt.Fprintf(os.Stderr, "%s\n", ev.Message)
		case progress.PhaseError:
			fmt.Fprintf(os.Stderr, "error: %s\n", ev.Message)
		default:
			fmt.Fprintf(os.Stderr, "%s\n", ev.Message)
		}
	})
}
