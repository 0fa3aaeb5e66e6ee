package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lukasbauer/speakd/internal/eventlog"
)

var errMissingMessage = errors.New("missing message")

type speakRequest struct {
	Message *string `json:"message"`
}

// handleSpeak starts speaking the posted message and acknowledges at once.
// The speech outcome is never reported here.
func (r *Router) handleSpeak(w http.ResponseWriter, req *http.Request) {
	if r.cfg.MaxBodyBytes > 0 {
		req.Body = http.MaxBytesReader(w, req.Body, r.cfg.MaxBodyBytes)
	}

	var body speakRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			r.logger.Printf("speak: body exceeds %d bytes", tooLarge.Limit)
			http.Error(w, `{"error": "message too large"}`, http.StatusRequestEntityTooLarge)
			return
		}
		r.logger.Printf("speak: invalid body: %v", err)
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	// A missing message is a server-side failure, not a client error.
	if body.Message == nil {
		r.logger.Printf("speak: %v", errMissingMessage)
		captureError(req, errMissingMessage, "speak: request without message")
		http.Error(w, `{"error": "missing message"}`, http.StatusInternalServerError)
		return
	}

	taskID, ok := r.tasks.Dispatch(*body.Message)
	if !ok {
		http.Error(w, `{"error": "server is shutting down"}`, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("X-Speech-Task-ID", taskID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// handleListVoices returns the voices offered by the active speech driver.
func (r *Router) handleListVoices(w http.ResponseWriter, req *http.Request) {
	backend := r.speaker.Backend()
	voices, err := backend.Voices(req.Context())
	if err != nil {
		r.logger.Printf("speak: failed to list %s voices: %v", backend.Name(), err)
		captureError(req, err, "speak: list voices")
		http.Error(w, `{"error": "failed to list voices"}`, http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"driver": backend.Name(),
		"voices": voices,
		"count":  len(voices),
	})
}

// handleTaskEvents returns the persisted events of one speech task.
func (r *Router) handleTaskEvents(w http.ResponseWriter, req *http.Request) {
	taskID := req.PathValue("taskId")
	if taskID == "" {
		http.Error(w, `{"error": "missing task ID"}`, http.StatusBadRequest)
		return
	}

	events, err := r.eventLog.ListTaskEvents(req.Context(), taskID)
	if err != nil {
		if errors.Is(err, eventlog.ErrDisabled) {
			http.Error(w, `{"error": "event log not configured"}`, http.StatusServiceUnavailable)
			return
		}
		r.logger.Printf("speak: failed to list events for %s: %v", taskID, err)
		captureError(req, err, "speak: list task events")
		http.Error(w, `{"error": "failed to list events"}`, http.StatusInternalServerError)
		return
	}
	if len(events) == 0 {
		http.Error(w, `{"error": "task not found"}`, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"task_id": taskID,
		"events":  events,
	})
}
