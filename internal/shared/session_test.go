package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/quarry-erp/quarry-erp/internal/shared"
)

func newManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return shared.NewSessionManager(client, "test_session", "unit-test-secret", time.Hour, false)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test_session" {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestAnonymousSessionIsNotPersisted(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)

	_, ok := sess.Actor()
	require.False(t, ok)

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	require.Empty(t, rec.Result().Cookies())
}

func TestLoginRoundTrip(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)

	sess.SetActor(7, shared.RoleFinance)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))

	cookie := sessionCookie(t, rec)
	require.NotEmpty(t, cookie.Value)
	require.True(t, cookie.HttpOnly)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookie)
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)

	actor, ok := loaded.Actor()
	require.True(t, ok)
	require.Equal(t, int64(7), actor.ID)
	require.Equal(t, shared.RoleFinance, actor.Role)
}

func TestDestroyClearsSession(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetActor(7, shared.RoleAdmin)

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	cookie := sessionCookie(t, rec)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sm.Destroy(loaded)

	rec = httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, loaded))
	cleared := sessionCookie(t, rec)
	require.Equal(t, -1, cleared.MaxAge)

	again := httptest.NewRequest(http.MethodGet, "/", nil)
	again.AddCookie(cookie)
	fresh, err := sm.Load(ctx, again)
	require.NoError(t, err)
	_, ok := fresh.Actor()
	require.False(t, ok)
}

func TestUnknownCookieYieldsAnonymousSession(t *testing.T) {
	sm := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "gone"})
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	_, ok := sess.Actor()
	require.False(t, ok)
}

func TestTamperedCookieYieldsAnonymousSession(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetActor(7, shared.RoleFinance)

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	cookie := sessionCookie(t, rec)

	// Swapping the id but keeping the old signature must not authenticate.
	forged := *cookie
	forged.Value = "other-session-id." + cookie.Value[len(cookie.Value)-43:]
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&forged)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	_, ok := loaded.Actor()
	require.False(t, ok)

	// A bare unsigned id is rejected too.
	id, _, found := strings.Cut(cookie.Value, ".")
	require.True(t, found)
	bare := *cookie
	bare.Value = id
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&bare)
	loaded, err = sm.Load(ctx, req)
	require.NoError(t, err)
	_, ok = loaded.Actor()
	require.False(t, ok)

	// Another manager with a different secret rejects a valid cookie.
	other := shared.NewSessionManager(nil, "test_session", "rotated-secret", time.Hour, false)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err = other.Load(ctx, req)
	require.NoError(t, err)
	_, ok = loaded.Actor()
	require.False(t, ok)
}
