package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerGeneratesRequestID(t *testing.T) {
	var seen string
	var got Completion
	m := NewMiddleware(func(_ *http.Request, c Completion) { got = c })

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/chart", func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	m.Handler(mux).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/chart", nil))

	require.True(t, strings.HasPrefix(seen, "req_"))
	assert.Equal(t, seen, rr.Header().Get(HeaderRequestID))
	assert.Equal(t, seen, got.RequestID)
	assert.Equal(t, http.StatusTeapot, got.Status)
	assert.Equal(t, "GET /api/chart", got.Route)
	assert.Equal(t, http.MethodGet, got.Method)
}

func TestHandlerKeepsIncomingRequestID(t *testing.T) {
	var got Completion
	m := NewMiddleware(func(_ *http.Request, c Completion) { got = c })
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	r := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	r.Header.Set(HeaderRequestID, "upstream-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)

	assert.Equal(t, "upstream-1", rr.Header().Get(HeaderRequestID))
	assert.Equal(t, http.StatusOK, got.Status)
	assert.Equal(t, "unmatched", got.Route)
}

func TestRejectsOversizedRequestID(t *testing.T) {
	h := NewMiddleware().Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, strings.Repeat("x", maxRequestIDLength+1))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	assert.True(t, strings.HasPrefix(rr.Header().Get(HeaderRequestID), "req_"))
}

func TestGetRequestIDEmpty(t *testing.T) {
	assert.Empty(t, GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}

func TestRouteSurvivesRequestCopies(t *testing.T) {
	var got Completion
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/expenses/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	copying := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(r.Context()))
		})
	}

	h := NewMiddleware(func(_ *http.Request, c Completion) { got = c }).Handler(copying(Route(mux)))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/expenses/42", nil))

	assert.Equal(t, "DELETE /api/expenses/{id}", got.Route)
	assert.Equal(t, http.StatusNoContent, got.Status)
}
