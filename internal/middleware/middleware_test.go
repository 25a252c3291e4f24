package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsrelay/internal/metrics"
	"whatsrelay/internal/tracing"
)

const testKey = "0123456789abcdef"

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func TestAPIKeyAuth(t *testing.T) {
	handler := APIKeyAuth(testKey, quietLogger())(http.HandlerFunc(okHandler))

	tests := []struct {
		name   string
		url    string
		header string
		want   int
	}{
		{name: "header", url: "/api/accounts", header: testKey, want: http.StatusOK},
		{name: "query parameter", url: "/api/accounts?apiKey=" + testKey, want: http.StatusOK},
		{name: "missing", url: "/api/accounts", want: http.StatusUnauthorized},
		{name: "wrong", url: "/api/accounts", header: "wrong-key-0123456", want: http.StatusUnauthorized},
		{name: "wrong query", url: "/api/accounts?apiKey=nope", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			if tt.header != "" {
				r.Header.Set(APIKeyHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, r)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRateLimiter_PerClientBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 2, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiter_Prune(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(2 * time.Minute)
	rl.Allow("b")

	assert.Equal(t, 1, rl.Prune())
	assert.Equal(t, 1, rl.Len())
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, time.Minute)
	handler := rl.Middleware(quietLogger())(http.HandlerFunc(okHandler))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest("GET", "/api/accounts", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest("GET", "/api/accounts", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), "RATE_LIMIT")
}

func TestObservability(t *testing.T) {
	m := metrics.New()
	router := mux.NewRouter()
	router.Use(Observability(quietLogger(), m))

	var seenID string
	router.HandleFunc("/api/rules/{ruleId}", func(w http.ResponseWriter, r *http.Request) {
		seenID = tracing.GetRequestID(r.Context())
		w.WriteHeader(http.StatusNotFound)
	}).Methods(http.MethodGet)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/rules/42", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, seenID)
	assert.Equal(t, seenID, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/rules/{ruleId}", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HTTPActiveRequests))
}

func TestObservability_KeepsIncomingRequestID(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Observability(quietLogger(), nil))
	router.HandleFunc("/health", okHandler)

	r := httptest.NewRequest("GET", "/health", nil)
	r.Header.Set(RequestIDHeader, "upstream-id")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	assert.Equal(t, "upstream-id", rec.Header().Get(RequestIDHeader))
}
