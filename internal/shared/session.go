package shared

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionManager orchestrates cookie based sessions backed by Redis. It is
// the boundary to the identity collaborator: all the core needs from it is an
// authenticated user id and role.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	secret     []byte
	ttl        time.Duration
	secure     bool
}

// Session holds per-request session data.
type Session struct {
	ID        string
	userID    int64
	role      Role
	isNew     bool
	dirty     bool
	destroyed bool
}

type sessionPayload struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

// NewSessionManager constructs a SessionManager. The secret signs cookie
// values so a forged or tampered session id is rejected before Redis is
// consulted.
func NewSessionManager(client *redis.Client, cookieName, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{client: client, cookieName: cookieName, secret: []byte(secret), ttl: ttl, secure: secure}
}

// Load loads or creates a session for the request.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return newSession(), nil
		}
		return nil, err
	}

	id, ok := sm.verifyCookie(cookie.Value)
	if !ok {
		return newSession(), nil
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			sess := newSession()
			sess.ID = id
			return sess, nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}
	return &Session{ID: id, userID: stored.UserID, role: Role(stored.Role)}, nil
}

// Commit persists the session and writes cookie headers as needed.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.destroyed {
		if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteStrictMode,
		})
		return nil
	}

	if !sess.dirty {
		return nil
	}

	if sess.ID == "" {
		sess.ID = generateSessionID()
	}
	data, err := json.Marshal(sessionPayload{UserID: sess.userID, Role: string(sess.role)})
	if err != nil {
		return err
	}
	if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err(); err != nil {
		return err
	}
	sess.dirty = false

	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sm.signCookie(sess.ID),
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return nil
}

// Destroy marks the session for deletion on commit.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.destroyed = true
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// SetActor associates the session with an authenticated user.
func (s *Session) SetActor(userID int64, role Role) {
	s.userID = userID
	s.role = role
	s.dirty = true
}

// Actor returns the authenticated actor, or false when the session is anonymous.
func (s *Session) Actor() (Actor, bool) {
	if s == nil || s.userID == 0 || !s.role.Valid() {
		return Actor{}, false
	}
	return Actor{ID: s.userID, Role: s.role}, true
}

// UserID returns the raw user id, zero when anonymous.
func (s *Session) UserID() int64 {
	if s == nil {
		return 0
	}
	return s.userID
}

func newSession() *Session {
	return &Session{isNew: true}
}

func (sm *SessionManager) redisKey(id string) string {
	return "session:" + id
}

func (sm *SessionManager) signCookie(id string) string {
	return id + "." + sm.signature(id)
}

func (sm *SessionManager) verifyCookie(value string) (string, bool) {
	id, sig, found := strings.Cut(value, ".")
	if !found || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(sm.signature(id))) {
		return "", false
	}
	return id, true
}

func (sm *SessionManager) signature(id string) string {
	mac := hmac.New(sha256.New, sm.secret)
	mac.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func generateSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
