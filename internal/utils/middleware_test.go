package utils

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observed struct {
	method, route string
	status        int
}

type fakeObserver struct{ got []observed }

func (f *fakeObserver) ObserveHTTP(method, route string, status int, d time.Duration) {
	f.got = append(f.got, observed{method, route, status})
}

func TestRequestIDAndLogger(t *testing.T) {
	obs := &fakeObserver{}
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(slog.New(slog.NewTextHandler(io.Discard, nil)), obs))
	var seen string
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		seen = RID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	_, err := uuid.Parse(rec.Header().Get("X-Request-ID"))
	require.NoError(t, err)
	assert.Equal(t, rec.Header().Get("X-Request-ID"), seen)
	require.Len(t, obs.got, 1)
	assert.Equal(t, observed{http.MethodGet, "/items/{id}", http.StatusTeapot}, obs.got[0])
}

func TestRequestIDKeepsClientValue(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
