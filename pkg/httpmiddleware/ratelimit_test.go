package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func request(remote string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remote
	return req
}

func TestLimiter_Window(t *testing.T) {
	l := NewLimiter(2, time.Minute)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, l.Allow("a", start).Allowed)
	d := l.Allow("a", start.Add(time.Second))
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.False(t, l.Allow("a", start.Add(2*time.Second)).Allowed)

	// Other keys are independent.
	assert.True(t, l.Allow("b", start).Allowed)

	// Halfway into the next window half of the previous count still applies.
	assert.True(t, l.Allow("a", start.Add(90*time.Second)).Allowed)
	assert.False(t, l.Allow("a", start.Add(90*time.Second)).Allowed)

	// After two idle windows the key starts fresh.
	assert.Equal(t, 1, l.Allow("a", start.Add(5*time.Minute)).Remaining)
}

func TestLimiter_Sweep(t *testing.T) {
	l := NewLimiter(1, time.Second)
	now := time.Now()
	l.Allow("a", now)
	l.Sweep(now.Add(3 * time.Second))
	assert.Empty(t, l.windows)
}

func TestRateLimit_UnderLimit(t *testing.T) {
	handler := RateLimit(NewLimiter(5, time.Minute), nil)(okHandler())

	for i := range 5 {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, request("192.168.1.1:12345"))

		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	handler := RateLimit(NewLimiter(2, time.Minute), nil)(okHandler())

	for range 2 {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, request("10.0.0.1:9999"))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, request("10.0.0.1:9999"))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, http.StatusTooManyRequests, body.Code)

	// A different client is unaffected.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, request("10.0.0.2:9999"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_CustomKey(t *testing.T) {
	byUser := func(r *http.Request) string { return r.Header.Get("X-User") }
	handler := RateLimit(NewLimiter(1, time.Minute), byUser)(okHandler())

	for _, tc := range []struct {
		user, remote string
		want         int
	}{
		{user: "alice", remote: "1.1.1.1:1", want: http.StatusOK},
		{user: "alice", remote: "2.2.2.2:1", want: http.StatusTooManyRequests},
		{user: "bob", remote: "1.1.1.1:1", want: http.StatusOK},
	} {
		req := request(tc.remote)
		req.Header.Set("X-User", tc.user)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code, "%s from %s", tc.user, tc.remote)
	}
}

func TestClientIP(t *testing.T) {
	req := request("10.0.0.1:1234")
	assert.Equal(t, "10.0.0.1", ClientIP(req))

	req.Header.Set("X-Real-IP", "172.16.0.1")
	assert.Equal(t, "172.16.0.1", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(req))

	req = request("not-a-host-port")
	assert.Equal(t, "not-a-host-port", ClientIP(req))
}
