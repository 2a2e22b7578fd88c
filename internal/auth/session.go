package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/kuitang/yanote/internal/db"
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// Session configuration
const (
	DefaultSessionDuration = 14 * 24 * time.Hour
	SessionIDLength        = 32 // 256 bits
	SessionCookieName      = "session_id"
)

// Session represents an active user session.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionService handles session management.
type SessionService struct {
	db       *db.DB
	clock    Clock
	duration time.Duration
}

// NewSessionService creates a session service. A nil clock uses real time and
// a non-positive duration selects DefaultSessionDuration.
func NewSessionService(database *db.DB, clock Clock, duration time.Duration) *SessionService {
	if clock == nil {
		clock = realClock{}
	}
	if duration <= 0 {
		duration = DefaultSessionDuration
	}
	return &SessionService{
		db:       database,
		clock:    clock,
		duration: duration,
	}
}

// Duration is the lifetime of new sessions.
func (s *SessionService) Duration() time.Duration {
	return s.duration
}

// Create creates a new session for a user.
// Returns the session ID which should be stored in a cookie.
func (s *SessionService) Create(ctx context.Context, userID string) (string, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return "", fmt.Errorf("generate session ID: %w", err)
	}

	now := s.clock.Now()
	query, args, err := db.Builder.
		Insert("sessions").
		Columns("session_id", "user_id", "expires_at", "created_at").
		Values(sessionID, userID, now.Add(s.duration).Unix(), now.Unix()).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.X().ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return sessionID, nil
}

// Validate checks if a session is valid and returns the user ID.
func (s *SessionService) Validate(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrSessionNotFound
	}
	query, args, err := db.Builder.
		Select("user_id", "expires_at").
		From("sessions").
		Where(sq.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build select: %w", err)
	}

	var row struct {
		UserID    string `db:"user_id"`
		ExpiresAt int64  `db:"expires_at"`
	}
	if err := s.db.X().GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("get session: %w", err)
	}
	if s.clock.Now().Unix() >= row.ExpiresAt {
		return "", ErrSessionExpired
	}
	return row.UserID, nil
}

// Delete removes a session (logout).
func (s *SessionService) Delete(ctx context.Context, sessionID string) error {
	return s.deleteWhere(ctx, sq.Eq{"session_id": sessionID}, "delete session")
}

// DeleteByUserID removes all sessions for a user.
func (s *SessionService) DeleteByUserID(ctx context.Context, userID string) error {
	return s.deleteWhere(ctx, sq.Eq{"user_id": userID}, "delete user sessions")
}

// Cleanup removes all expired sessions.
// This should be called periodically by a background goroutine.
func (s *SessionService) Cleanup(ctx context.Context) (int64, error) {
	query, args, err := db.Builder.
		Delete("sessions").
		Where(sq.LtOrEq{"expires_at": s.clock.Now().Unix()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build cleanup: %w", err)
	}
	res, err := s.db.X().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *SessionService) deleteWhere(ctx context.Context, where sq.Eq, op string) error {
	query, args, err := db.Builder.Delete("sessions").Where(where).ToSql()
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}
	if _, err := s.db.X().ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Cookie helpers

// SetCookie sets the session cookie on the response.
func SetCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})
}

// ClearCookie removes the session cookie.
func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// GetFromRequest retrieves the session ID from the request cookie.
func GetFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrSessionNotFound
		}
		return "", err
	}
	return cookie.Value, nil
}

func generateSessionID() (string, error) {
	bytes := make([]byte, SessionIDLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
