// Package app wires the pieces together: config, logging, storage,
// registry, the Reddit client factory, the Telegram bot, the dispatch
// coordinator, and the maintenance schedule.
package app

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	"redwatch/internal/config"
	"redwatch/internal/monitor"
	"redwatch/internal/reddit"
	"redwatch/internal/registry"
	"redwatch/internal/storage"
	"redwatch/internal/telegram"
	logx "redwatch/pkg/logx"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	store storage.Store
	reg   *registry.Registry
	bot   *telegram.Bot
	coord *monitor.Coordinator
	cron  *cron.Cron

	watchCancel context.CancelFunc
	wg          sync.WaitGroup

	timings config.Timings
}

// New loads config and constructs every component. Configuration
// errors (missing credentials, bad durations) are fatal here, before
// anything starts.
func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	timings, err := cfg.Timings()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	mgr.SetLogger(log)

	defaultDest := strconv.FormatInt(cfg.Telegram.ChatID, 10)

	store, err := storage.Open(storage.Config{
		Driver:            cfg.Storage.Driver,
		Path:              cfg.StoragePath(),
		LegacyDestination: defaultDest,
	}, log)
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("storage: %w", err)
	}

	reg, err := registry.New(store, log)
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, fmt.Errorf("registry: %w", err)
	}

	bot, err := telegram.New(telegram.Config{
		Token:        cfg.Telegram.Token,
		ChatID:       cfg.Telegram.ChatID,
		AllowAnyChat: cfg.Telegram.AllowAnyChat,
		SendDelay:    timings.SendDelay,
	}, log)
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, fmt.Errorf("telegram: %w", err)
	}

	// A fresh client per monitoring session, so credential or UA
	// changes take effect on the next start.
	newSource := func() (monitor.Source, error) {
		rc := mgr.Get().Reddit
		return reddit.New(reddit.Config{
			ClientID:     rc.ClientID,
			ClientSecret: rc.ClientSecret,
			Username:     rc.Username,
			Password:     rc.Password,
			UserAgent:    rc.UserAgent,
		}, log)
	}

	coord := monitor.NewCoordinator(monitor.Config{
		PollInterval:     timings.CheckInterval,
		SearchLimit:      timings.SearchLimit,
		SendDelay:        timings.SendDelay,
		FetchDelay:       timings.FetchDelay,
		StreamRetryDelay: timings.StreamRetryDelay,
		IdleDelay:        timings.IdleDelay,
	}, reg, bot, newSource, log)

	return &App{
		cfgMgr:  mgr,
		logSvc:  logSvc,
		log:     log,
		store:   store,
		reg:     reg,
		bot:     bot,
		coord:   coord,
		timings: timings,
	}, nil
}

// Start brings up the command surface and background maintenance, and
// resumes monitoring when persisted subscriptions already have work.
func (a *App) Start(ctx context.Context) error {
	router := telegram.NewRouter(a.bot, a.reg, a.coord, a.log)
	router.Bind(ctx)
	a.bot.Start()

	// Resume monitoring across restarts: if persisted subscriptions
	// already have keywords, don't wait for /startmon.
	if a.reg.HasEnabledKeywords() {
		if err := a.coord.Start(ctx); err != nil {
			a.log.Warn("monitoring autostart failed", logx.Err(err))
		}
	}

	// Periodic flush persists dedup marks accumulated on the stream
	// path between poll passes.
	a.cron = cron.New()
	a.cron.Schedule(cron.Every(a.timings.FlushInterval), cron.FuncJob(func() {
		if err := a.reg.Flush(); err != nil {
			a.log.Warn("scheduled registry flush failed", logx.Err(err))
		}
	}))
	a.cron.Start()

	watchCtx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgMgr.Watch(watchCtx); err != nil && watchCtx.Err() == nil {
			a.log.Warn("config watcher exited", logx.Err(err))
		}
	}()

	sub := a.cfgMgr.Subscribe(1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgMgr.Unsubscribe(sub)
		for {
			select {
			case <-watchCtx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyReload(cfg)
			}
		}
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("redwatch started")
	return nil
}

// applyReload applies what can change without a restart: logging.
// Interval and credential changes take effect on the next /startmon.
func (a *App) applyReload(cfg *config.Config) {
	a.logSvc.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	a.log.Info("logging config applied; monitor timings apply on next start")
}

// Stop shuts everything down in dependency order and waits for the
// monitoring session to unwind.
func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	err := a.coord.Stop(ctx)

	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	a.bot.Stop()

	if a.watchCancel != nil {
		a.watchCancel()
	}
	a.wg.Wait()

	if ferr := a.reg.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	if cerr := a.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	a.log.Info("redwatch stopped")
	_ = a.logSvc.Close()
	return err
}
