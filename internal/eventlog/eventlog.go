package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDisabled is returned by queries when no database is configured.
var ErrDisabled = errors.New("event log disabled")

// EventType represents the type of speech task event
type EventType string

const (
	EventSpeechQueued    EventType = "speech_queued"
	EventSpeechStarted   EventType = "speech_started"
	EventSpeechCompleted EventType = "speech_completed"
	EventSpeechFailed    EventType = "speech_failed"
)

// Event is a stored speech task event.
type Event struct {
	TaskID    string          `json:"task_id"`
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// queueSize bounds events waiting for the writer. LogAsync blocks when
// it is full rather than dropping events.
const queueSize = 256

type pendingEvent struct {
	taskID    string
	eventType EventType
	data      map[string]any
}

// Logger persists speech task events. Async events go through a single
// writer goroutine, so they are stored in the order they were logged.
type Logger struct {
	db    *pgxpool.Pool
	write func(ctx context.Context, e pendingEvent) error

	mu     sync.RWMutex
	closed bool
	queue  chan pendingEvent
	done   chan struct{}
}

// New creates a new event logger. A nil pool disables logging.
func New(db *pgxpool.Pool) *Logger {
	l := &Logger{db: db}
	if db == nil {
		return l
	}
	l.start(func(ctx context.Context, e pendingEvent) error {
		return l.Log(ctx, e.taskID, e.eventType, e.data)
	})
	return l
}

func (l *Logger) start(write func(ctx context.Context, e pendingEvent) error) {
	l.write = write
	l.queue = make(chan pendingEvent, queueSize)
	l.done = make(chan struct{})
	go l.drain()
}

func (l *Logger) drain() {
	defer close(l.done)
	for e := range l.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = l.write(ctx, e)
		cancel()
	}
}

// Enabled reports whether events are persisted.
func (l *Logger) Enabled() bool {
	return l != nil && l.db != nil
}

// Log writes an event to the database synchronously
func (l *Logger) Log(ctx context.Context, taskID string, eventType EventType, data map[string]any) error {
	if !l.Enabled() || taskID == "" {
		return nil // Silently skip if no DB or task ID
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		dataJSON = []byte("{}")
	}

	_, err = l.db.Exec(ctx, `
		INSERT INTO speech_events (task_id, event_type, event_data)
		VALUES ($1, $2, $3)
	`, taskID, string(eventType), dataJSON)

	return err
}

// LogAsync queues an event for the writer goroutine. Events logged after
// Close are dropped.
func (l *Logger) LogAsync(taskID string, eventType EventType, data map[string]any) {
	if l == nil || l.queue == nil || taskID == "" {
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	l.queue <- pendingEvent{taskID: taskID, eventType: eventType, data: data}
}

// Close stops accepting events and waits until the queued ones are
// written or ctx ends. The pool must stay open until Close returns.
func (l *Logger) Close(ctx context.Context) error {
	if l == nil || l.queue == nil {
		return nil
	}

	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ListTaskEvents returns the events recorded for a task, oldest first.
func (l *Logger) ListTaskEvents(ctx context.Context, taskID string) ([]Event, error) {
	if !l.Enabled() {
		return nil, ErrDisabled
	}

	rows, err := l.db.Query(ctx, `
		SELECT task_id, event_type, event_data, created_at
		FROM speech_events
		WHERE task_id = $1
		ORDER BY created_at ASC, id ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		var eventType string
		if err := rows.Scan(&e.TaskID, &eventType, &e.Data, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = EventType(eventType)
		events = append(events, e)
	}
	return events, rows.Err()
}
