package httpapi

import (
	"context"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/lukasbauer/speakd/internal/eventlog"
	"github.com/lukasbauer/speakd/internal/speech"
	"golang.org/x/sync/semaphore"
)

// Speaker speaks a message and blocks until playback completes.
type Speaker interface {
	Speak(ctx context.Context, message string) error
	Backend() speech.Backend
}

// FailureNotifier is alerted when a speech task fails.
type FailureNotifier interface {
	NotifySpeechFailed(ctx context.Context, taskID, driver string, err error)
}

// TaskRunnerConfig tunes background speech execution.
type TaskRunnerConfig struct {
	MaxConcurrent int           // 0 = unlimited
	Timeout       time.Duration // 0 = no timeout
	Notifier      FailureNotifier
}

// TaskRunner runs one detached goroutine per speech request. Outcomes are
// logged, reported to Sentry, persisted and published to the event hub;
// none of them ever reach the HTTP caller.
type TaskRunner struct {
	cfg      TaskRunnerConfig
	logger   *log.Logger
	speaker  Speaker
	registry *TaskRegistry
	hub      *EventHub
	eventLog *eventlog.Logger
	sem      *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
}

func NewTaskRunner(cfg TaskRunnerConfig, logger *log.Logger, speaker Speaker, registry *TaskRegistry, hub *EventHub, eventLog *eventlog.Logger) *TaskRunner {
	ctx, cancel := context.WithCancel(context.Background())
	tr := &TaskRunner{
		cfg:      cfg,
		logger:   logger,
		speaker:  speaker,
		registry: registry,
		hub:      hub,
		eventLog: eventLog,
		ctx:      ctx,
		cancel:   cancel,
	}
	if cfg.MaxConcurrent > 0 {
		tr.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	return tr
}

// Dispatch starts speaking message in the background and returns the task
// ID immediately. ok is false when the registry is draining.
func (tr *TaskRunner) Dispatch(message string) (taskID string, ok bool) {
	if !tr.registry.Add() {
		return "", false
	}

	taskID = uuid.NewString()
	tr.emit(taskID, eventlog.EventSpeechQueued, map[string]any{
		"message_length": utf8.RuneCountInString(message),
	})

	go tr.run(taskID, message)
	return taskID, true
}

// Cancel aborts every running and waiting task.
func (tr *TaskRunner) Cancel() {
	tr.cancel()
}

func (tr *TaskRunner) run(taskID, message string) {
	defer tr.registry.Done()

	ctx := tr.ctx
	if tr.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tr.cfg.Timeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			hub := sentry.CurrentHub().Clone()
			hub.Scope().SetTag("task_id", taskID)
			hub.RecoverWithContext(ctx, rec)
			tr.logger.Printf("speak: task %s panicked: %v", taskID, rec)
			tr.emit(taskID, eventlog.EventSpeechFailed, map[string]any{
				"error": fmt.Sprint(rec),
			})
		}
	}()

	if tr.sem != nil {
		if err := tr.sem.Acquire(ctx, 1); err != nil {
			tr.fail(ctx, taskID, fmt.Errorf("wait for speaker slot: %w", err), 0)
			return
		}
		defer tr.sem.Release(1)
	}

	start := time.Now()
	tr.emit(taskID, eventlog.EventSpeechStarted, nil)

	if err := tr.speaker.Speak(ctx, message); err != nil {
		tr.fail(ctx, taskID, err, time.Since(start))
		return
	}

	tr.emit(taskID, eventlog.EventSpeechCompleted, map[string]any{
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

func (tr *TaskRunner) fail(ctx context.Context, taskID string, err error, elapsed time.Duration) {
	tr.logger.Printf("speak: task %s failed: %v", taskID, err)

	hub := sentry.CurrentHub().Clone()
	hub.Scope().SetTag("task_id", taskID)
	hub.Scope().SetTag("speech_driver", tr.driver())
	hub.CaptureException(err)

	if tr.cfg.Notifier != nil {
		// ctx may already be done; the alert has its own deadline.
		tr.cfg.Notifier.NotifySpeechFailed(context.Background(), taskID, tr.driver(), err)
	}

	tr.emit(taskID, eventlog.EventSpeechFailed, map[string]any{
		"error":       err.Error(),
		"duration_ms": elapsed.Milliseconds(),
		"canceled":    ctx.Err() != nil,
	})
}

func (tr *TaskRunner) emit(taskID string, eventType eventlog.EventType, data map[string]any) {
	tr.hub.Publish(TaskEvent{
		TaskID: taskID,
		Type:   eventType,
		Driver: tr.driver(),
		Data:   data,
		At:     time.Now().UTC(),
	})
	tr.eventLog.LogAsync(taskID, eventType, data)
}

func (tr *TaskRunner) driver() string {
	if b := tr.speaker.Backend(); b != nil {
		return b.Name()
	}
	return ""
}
