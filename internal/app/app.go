package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lukasbauer/speakd/internal/eventlog"
	"github.com/lukasbauer/speakd/internal/httpapi"
	"github.com/lukasbauer/speakd/internal/notifications"
	"github.com/lukasbauer/speakd/internal/speech"
)

type App struct {
	cfg      Config
	logger   *log.Logger
	db       *pgxpool.Pool
	eventLog *eventlog.Logger
	speaker  *speech.Speaker
	registry *httpapi.TaskRegistry
	events   *httpapi.EventHub
	tasks    *httpapi.TaskRunner
}

func New(cfg Config, logger *log.Logger) (*App, error) {
	backend, err := speech.NewBackend(cfg.SpeechDriver, cfg.SpeechBinary, logger)
	if err != nil {
		return nil, err
	}
	logger.Printf("speech driver: %s", backend.Name())

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = connectDB(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Printf("DATABASE_URL not set, speech events are not persisted")
	}

	// The speech_events table is created by migrations/, applied externally.
	el := eventlog.New(db)
	speaker := speech.NewSpeaker(backend)
	registry := httpapi.NewTaskRegistry()
	events := httpapi.NewEventHub()
	runnerCfg := httpapi.TaskRunnerConfig{
		MaxConcurrent: cfg.SpeechMaxConcurrent,
		Timeout:       cfg.SpeechTimeout,
	}
	if discord := notifications.NewDiscord(cfg.DiscordWebhookURL, logger); discord.Enabled() {
		runnerCfg.Notifier = discord
	}
	tasks := httpapi.NewTaskRunner(runnerCfg, logger, speaker, registry, events, el)

	return &App{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		eventLog: el,
		speaker:  speaker,
		registry: registry,
		events:   events,
		tasks:    tasks,
	}, nil
}

func connectDB(url string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (a *App) Router() http.Handler {
	routerCfg := httpapi.RouterConfig{
		SpeakJWTSecret: a.cfg.SpeakJWTSecret,
		MaxBodyBytes:   a.cfg.SpeakMaxBodyBytes,
	}
	return httpapi.NewRouter(routerCfg, a.logger, a.speaker, a.tasks, a.registry, a.events, a.eventLog)
}

// Drain stops accepting speech tasks and waits for running ones. If ctx
// ends first, the remaining tasks are canceled.
func (a *App) Drain(ctx context.Context) error {
	a.registry.StartDraining()
	a.logger.Printf("draining %d speech tasks", a.registry.ActiveCount())
	if err := a.registry.Wait(ctx); err != nil {
		a.logger.Printf("drain interrupted, canceling %d speech tasks", a.registry.ActiveCount())
		a.tasks.Cancel()
		return err
	}
	return nil
}

// Close cancels leftover tasks, flushes their events and closes the pool.
func (a *App) Close() error {
	a.tasks.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.registry.Wait(ctx); err != nil {
		a.logger.Printf("%d speech tasks still running at close", a.registry.ActiveCount())
	}
	err := a.eventLog.Close(ctx)
	if err != nil {
		a.logger.Printf("event log flush: %v", err)
	}

	if a.db != nil {
		a.db.Close()
	}
	return err
}
