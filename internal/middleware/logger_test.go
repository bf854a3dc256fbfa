package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_RecordsStatusAndPath(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/cart/complete", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields["path"] != "/api/cart/complete" {
		t.Fatalf("path = %v, want /api/cart/complete", fields["path"])
	}
	if fields["status"] != int64(http.StatusConflict) {
		t.Fatalf("status = %v, want %d", fields["status"], http.StatusConflict)
	}
}
