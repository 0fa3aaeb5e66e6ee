package app

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(Config{SpeechDriver: "festival"}, log.New(io.Discard, "", 0))
	if err == nil {
		t.Fatal("New() with unknown driver should fail")
	}
}

func TestAppServesAndDrains(t *testing.T) {
	a, err := New(Config{SpeechDriver: "log"}, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	h := a.Router()

	req := httptest.NewRequest(http.MethodPost, "/speak", strings.NewReader(`{"message": "hello"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /speak status = %d, want %d", rec.Code, http.StatusOK)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Drain(ctx); err != nil {
		t.Fatalf("Drain() = %v", err)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz after drain = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	if err := a.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestAppCloseCancelsRunningTasks(t *testing.T) {
	a, err := New(Config{SpeechDriver: "log"}, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if _, ok := a.tasks.Dispatch("hello"); !ok {
		t.Fatal("Dispatch() should accept before draining")
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if n := a.registry.ActiveCount(); n != 0 {
		t.Errorf("ActiveCount() after Close = %d, want 0", n)
	}
}
