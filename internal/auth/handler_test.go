package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/quarry-erp/quarry-erp/internal/shared"
)

type stubRepo struct {
	user *User
}

func (r *stubRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	if r.user == nil || r.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return r.user, nil
}

func (r *stubRepo) EmailByID(ctx context.Context, userID int64) (string, error) {
	return r.user.Email, nil
}

func (r *stubRepo) EmailsByRole(ctx context.Context, role shared.Role) ([]string, error) {
	return []string{r.user.Email}, nil
}

func (r *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (r *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

func testUser(t *testing.T, password string) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &User{
		ID:           5,
		Email:        "finance@quarry.test",
		Name:         "Fin Ops",
		PasswordHash: string(hash),
		Role:         shared.RoleFinance,
		IsActive:     true,
	}
}

func loginRequest(t *testing.T, body string) (*http.Request, *shared.Session) {
	t.Helper()
	sessions := shared.NewSessionManager(nil, "quarry_session", "test-secret", time.Hour, false)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	sess, err := sessions.Load(req.Context(), req)
	require.NoError(t, err)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func newTestHandler(repo Repository) *Handler {
	sessions := shared.NewSessionManager(nil, "quarry_session", "test-secret", time.Hour, false)
	return NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(repo), sessions)
}

func TestHandleLoginSuccess(t *testing.T) {
	repo := &stubRepo{user: testUser(t, "s3cretpass")}
	h := newTestHandler(repo)

	req, sess := loginRequest(t, `{"email":"finance@quarry.test","password":"s3cretpass"}`)
	rr := httptest.NewRecorder()
	h.handleLogin(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"role":"finance"`)

	actor, ok := sess.Actor()
	require.True(t, ok)
	require.Equal(t, int64(5), actor.ID)
	require.Equal(t, shared.RoleFinance, actor.Role)
}

func TestHandleLoginWrongPassword(t *testing.T) {
	repo := &stubRepo{user: testUser(t, "s3cretpass")}
	h := newTestHandler(repo)

	req, sess := loginRequest(t, `{"email":"finance@quarry.test","password":"wrongpass1"}`)
	rr := httptest.NewRecorder()
	h.handleLogin(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	_, ok := sess.Actor()
	require.False(t, ok)
}

func TestHandleLoginInactiveUser(t *testing.T) {
	user := testUser(t, "s3cretpass")
	user.IsActive = false
	h := newTestHandler(&stubRepo{user: user})

	req, _ := loginRequest(t, `{"email":"finance@quarry.test","password":"s3cretpass"}`)
	rr := httptest.NewRecorder()
	h.handleLogin(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandleLoginValidation(t *testing.T) {
	h := newTestHandler(&stubRepo{})

	req, _ := loginRequest(t, `{"email":"not-an-email","password":"short"}`)
	rr := httptest.NewRecorder()
	h.handleLogin(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "email")
	require.Contains(t, rr.Body.String(), "password")
}

func TestRequireActor(t *testing.T) {
	var gotActor shared.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActor, _ = shared.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	guarded := RequireActor(next)

	// Anonymous session is rejected.
	req, _ := loginRequest(t, "")
	rr := httptest.NewRecorder()
	guarded.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	// Authenticated session flows through with the actor in context.
	req, sess := loginRequest(t, "")
	sess.SetActor(7, shared.RoleRequester)
	rr = httptest.NewRecorder()
	guarded.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, int64(7), gotActor.ID)
}
