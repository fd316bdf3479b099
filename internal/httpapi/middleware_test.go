package httpapi

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arfa/internal/auth"
	"arfa/internal/store"
)

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t)
	org := env.seedOrg(t)
	emp, good := env.seedEmployee(t, org.ID, "admin")

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signWithOtherSecret(t, emp), http.StatusUnauthorized},
		{"valid", "Bearer " + good, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func signWithOtherSecret(t *testing.T, emp store.Employee) string {
	t.Helper()
	other := auth.NewJWT("other-secret", time.Hour)
	token, _, err := other.Generate(emp.ID, emp.OrgID)
	require.NoError(t, err)
	return token
}

// A structurally valid JWT whose session row is gone must not authenticate.
func TestAuthMiddlewareRequiresLiveSession(t *testing.T) {
	env := newTestEnv(t)
	org := env.seedOrg(t)
	emp, _ := env.seedEmployee(t, org.ID, "admin")

	token, _, err := env.jwt.Generate(emp.ID, emp.OrgID)
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareBlocksSuspendedEmployee(t *testing.T) {
	env := newTestEnv(t)
	org := env.seedOrg(t)
	emp, token := env.seedEmployee(t, org.ID, "admin")

	e := env.fake.employees[emp.ID]
	e.Status = "suspended"
	env.fake.employees[emp.ID] = e

	rec := env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRateLimiterFixedWindow(t *testing.T) {
	l := newIPRateLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		assert.True(t, l.allow("10.0.0.1"))
	}
	assert.False(t, l.allow("10.0.0.1"))

	// Other clients have their own window.
	assert.True(t, l.allow("10.0.0.2"))
}

func TestRateLimiterWindowReset(t *testing.T) {
	l := newIPRateLimiter(1, 10*time.Millisecond)
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	time.Sleep(15 * time.Millisecond)
	assert.True(t, l.allow("10.0.0.1"))
}

func TestRateLimiterSkipsStreamPaths(t *testing.T) {
	l := newIPRateLimiter(1, time.Minute)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := l.middleware(next)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/activity/stream", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/teams", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	mw := corsMiddleware([]string{"https://admin.example.com"})
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := mw(next)

	t.Run("configured origin allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/teams", nil)
		req.Header.Set("Origin", "https://admin.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://admin.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("localhost allowed for development", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/teams", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown origin preflight rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/teams", nil)
		req.Header.Set("Origin", "https://evil.example.net")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown origin plain request passes without CORS headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/teams", nil)
		req.Header.Set("Origin", "https://evil.example.net")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestBrokerDeliversPerOrg(t *testing.T) {
	b := newBroker()
	orgA := uuid.New()
	orgB := uuid.New()

	chA := b.subscribe(orgA)
	defer b.unsubscribe(orgA, chA)
	chB := b.subscribe(orgB)
	defer b.unsubscribe(orgB, chB)

	b.publish(orgA, store.ActivityLog{EventType: "team.created"})

	select {
	case l := <-chA:
		assert.Equal(t, "team.created", l.EventType)
	case <-time.After(time.Second):
		t.Fatal("expected event on org A channel")
	}

	select {
	case <-chB:
		t.Fatal("org B must not receive org A events")
	default:
	}
}

// Publishes race against subscriber churn on the same org. Under -race
// this catches map mutation during iteration and sends on closed channels.
func TestBrokerPublishDuringUnsubscribe(t *testing.T) {
	b := newBroker()
	orgID := uuid.New()

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					b.publish(orgID, store.ActivityLog{EventType: "team.created"})
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		ch := b.subscribe(orgID)
		b.unsubscribe(orgID, ch)
	}
	close(done)
	wg.Wait()
}
