package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionManager orchestrates cookie based sessions backed by Redis.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
}

// Session holds per-request session data.
type Session struct {
	ID        string
	userID    int64
	issuedAt  time.Time
	dirty     bool
	destroyed bool
}

type sessionPayload struct {
	UserID   int64     `json:"user_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// Load returns the session referenced by the request cookie, or a fresh
// anonymous session.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return sm.newSession(), nil
		}
		return nil, err
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return sm.newSession(), nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}
	return &Session{ID: cookie.Value, userID: stored.UserID, issuedAt: stored.IssuedAt}, nil
}

// Commit persists a dirty session and writes the cookie. Destroyed sessions are
// removed from Redis and the cookie is expired.
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
	data, err := json.Marshal(sessionPayload{UserID: sess.userID, IssuedAt: sess.issuedAt})
	if err != nil {
		return err
	}
	if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err(); err != nil {
		return err
	}
	sess.dirty = false
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return nil
}

// Destroy marks the session for deletion.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.destroyed = true
}

// SetUser binds the session to a user and rotates the session id.
func (s *Session) SetUser(id int64) {
	s.ID = uuid.NewString()
	s.userID = id
	s.issuedAt = time.Now().UTC()
	s.dirty = true
}

// UserID returns the bound user, zero for anonymous sessions.
func (s *Session) UserID() int64 {
	if s == nil {
		return 0
	}
	return s.userID
}

func (sm *SessionManager) newSession() *Session {
	return &Session{ID: uuid.NewString()}
}

func (sm *SessionManager) redisKey(id string) string {
	return "session:" + id
}
