package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"socialsync-backend/internal/adapters"
	"socialsync-backend/internal/archive"
	"socialsync-backend/internal/components/chrono"
	"socialsync-backend/internal/components/telemetry"
	"socialsync-backend/internal/db"
	"socialsync-backend/internal/jobs"
	"socialsync-backend/internal/orchestrator"
	"socialsync-backend/internal/platform"
	"socialsync-backend/internal/scrapers/browser"
	"socialsync-backend/internal/store"
	"socialsync-backend/pkg/migrations"
	"time"
)

// App holds everything the commands share, Close releases it.
type App struct {
	Config       Config
	Clock        chrono.API
	Store        store.Store
	Orchestrator *orchestrator.Orchestrator

	tel     telemetry.API
	closers []func() error
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// NewApp opens the database and, when withCollectors is set, the vendor client, browser and
// archive the collectors need.
func NewApp(ctx context.Context, config Config, tel telemetry.API, withCollectors bool) (*App, error) {
	clock, err := chrono.NewStandardImpl(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}

	slog.Info("setting up database...")
	database, err := migrations.OpenAndMigrateDB(config.Database, db.Schema)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  config,
		Clock:   clock,
		Store:   store.NewStore(database, clock),
		tel:     tel,
		closers: []func() error{database.Close},
	}
	if !withCollectors {
		return app, nil
	}

	factory, err := newCollectorFactory(ctx, config, tel)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, factory.Close)

	collectors, backups, err := factory.build()
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Orchestrator = orchestrator.NewOrchestrator(orchestrator.Options{
		Storage:     app.Store,
		Collectors:  collectors,
		Backups:     backups,
		Concurrency: config.Concurrency,
		Clock:       clock,
	}, tel)
	return app, nil
}

type collectorFactory struct {
	config    Config
	platforms map[platform.Platform]PlatformConfig
	adapters  adapters.Registry
	invoker   *jobs.Invoker
	archive   archive.Archive
	tel       telemetry.API

	// browserRuntime is launched on first use
	browserRuntime *browser.RodRuntime
	staticRuntime  *browser.StaticRuntime
}

func newCollectorFactory(ctx context.Context, config Config, tel telemetry.API) (*collectorFactory, error) {
	platforms, err := config.PlatformConfigs()
	if err != nil {
		return nil, err
	}

	client := jobs.NewHTTPClient(jobs.ClientOptions{
		BaseURL:           config.Vendor.BaseUrl,
		Token:             config.Vendor.Token,
		RequestsPerSecond: config.Vendor.RequestsPerSecond,
	}, tel)
	invoker := jobs.NewInvoker(client, jobs.InvokerOptions{
		PollInterval: config.PollInterval(),
		Deadline:     config.Deadline(),
	}, tel)

	arch, err := openArchive(ctx, config.Archive)
	if err != nil {
		return nil, err
	}

	return &collectorFactory{
		config:    config,
		platforms: platforms,
		adapters:  adapters.Default(),
		invoker:   invoker,
		archive:   arch,
		tel:       tel,
	}, nil
}

func openArchive(ctx context.Context, config ArchiveConfig) (archive.Archive, error) {
	switch {
	case config.S3 != nil && config.S3.Bucket != "":
		return archive.NewS3(ctx, *config.S3)
	case config.Dir != "":
		return archive.Filesystem{Dir: config.Dir}, nil
	}
	return archive.Discard{}, nil
}

func (f *collectorFactory) build() (map[platform.Platform]orchestrator.Collector, map[platform.Platform]orchestrator.Collector, error) {
	collectors := map[platform.Platform]orchestrator.Collector{}
	backups := map[platform.Platform]orchestrator.Collector{}
	for p, pc := range f.platforms {
		primary, err := f.collector(p, pc.Primary())
		if err != nil {
			return nil, nil, fmt.Errorf("platforms.%s: %w", p, err)
		}
		collectors[p] = primary

		if pc.Backup == nil {
			continue
		}
		backup, err := f.collector(p, *pc.Backup)
		if err != nil {
			return nil, nil, fmt.Errorf("platforms.%s.backup: %w", p, err)
		}
		backups[p] = backup
	}
	return collectors, backups, nil
}

func (f *collectorFactory) collector(p platform.Platform, cc CollectorConfig) (orchestrator.Collector, error) {
	switch cc.Mode {
	case ModeJob:
		adapter, ok := f.adapters.Lookup(p)
		if !ok {
			return nil, fmt.Errorf("no adapter for %s", p)
		}
		return orchestrator.NewJobCollector(orchestrator.JobCollectorOptions{
			Actor:   cc.Actor,
			Adapter: adapter,
			Runner:  f.invoker,
			Archive: f.archive,
			Isolate: cc.Isolate,
			Delay:   time.Duration(cc.DelayMs) * time.Millisecond,
		}, f.tel), nil
	case ModeBrowser, ModeHTTP:
		runtime, err := f.runtime(cc.Mode)
		if err != nil {
			return nil, err
		}
		// one engine per collector so a platform renders one page at a time
		engine := browser.NewEngine(browser.Options{
			Runtime: runtime,
			Timeouts: map[platform.Platform]browser.Timeouts{
				p: {
					Navigation: time.Duration(cc.NavigationTimeoutSec) * time.Second,
					Idle:       time.Duration(cc.IdleTimeoutSec) * time.Second,
				},
			},
		}, f.tel)
		return orchestrator.NewBrowserCollector(engine), nil
	}
	return nil, fmt.Errorf("unknown mode '%s'", cc.Mode)
}

func (f *collectorFactory) runtime(mode Mode) (browser.Runtime, error) {
	if mode == ModeHTTP {
		if f.staticRuntime == nil {
			f.staticRuntime = browser.NewStaticRuntime(f.config.Browser.UserAgent, f.tel)
		}
		return f.staticRuntime, nil
	}

	if f.browserRuntime == nil {
		headless := true
		if f.config.Browser.Headless != nil {
			headless = *f.config.Browser.Headless
		}
		slog.Info("launching browser...", "headless", headless)
		runtime, err := browser.NewRodRuntime(browser.RodOptions{
			Bin:       f.config.Browser.Bin,
			Headless:  headless,
			UserAgent: f.config.Browser.UserAgent,
		})
		if err != nil {
			return nil, err
		}
		f.browserRuntime = runtime
	}
	return f.browserRuntime, nil
}

func (f *collectorFactory) Close() error {
	if f.browserRuntime == nil {
		return nil
	}
	return f.browserRuntime.Close()
}
