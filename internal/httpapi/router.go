package httpapi

import (
	"encoding/json"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lukasbauer/speakd/internal/eventlog"
)

type RouterConfig struct {
	// JWT secret for POST /speak. Empty disables auth.
	SpeakJWTSecret string

	// Request body limit for POST /speak. 0 means no limit.
	MaxBodyBytes int64
}

type Router struct {
	cfg      RouterConfig
	logger   *log.Logger
	speaker  Speaker
	tasks    *TaskRunner
	registry *TaskRegistry
	events   *EventHub
	eventLog *eventlog.Logger
	pages    *template.Template
	mux      *http.ServeMux
}

func NewRouter(cfg RouterConfig, logger *log.Logger, speaker Speaker, tasks *TaskRunner, registry *TaskRegistry, events *EventHub, eventLog *eventlog.Logger) http.Handler {
	r := &Router{
		cfg:      cfg,
		logger:   logger,
		speaker:  speaker,
		tasks:    tasks,
		registry: registry,
		events:   events,
		eventLog: eventLog,
		pages:    mustParsePages(),
		mux:      http.NewServeMux(),
	}

	r.routes()
	return withSentryRecovery(withCORS(r.mux))
}

func (r *Router) routes() {
	// Health checks
	r.mux.HandleFunc("GET /healthz", r.handleHealthz)
	r.mux.HandleFunc("GET /readyz", r.handleReadyz)

	// Landing page and its assets
	r.mux.HandleFunc("GET /{$}", r.handleIndex)
	r.mux.Handle("GET /static/", staticHandler())

	// Speech
	r.mux.HandleFunc("POST /speak", r.withSpeakAuth(r.handleSpeak))
	r.mux.HandleFunc("GET /voices", r.handleListVoices)

	// Task observability
	r.mux.HandleFunc("GET /events", r.handleEventsWS)
	r.mux.HandleFunc("GET /tasks/{taskId}/events", r.handleTaskEvents)
}

func (r *Router) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Router) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if r.registry.IsDraining() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("draining"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withSentryRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(req)
				hub.RecoverWithContext(req.Context(), err)
				hub.Flush(2 * time.Second)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// captureError sends an error to Sentry with request context
func captureError(req *http.Request, err error, msg string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("message", msg)
		sentry.CaptureException(err)
	})
}
