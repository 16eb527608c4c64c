package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// CookieName is the session cookie set by the HTTP layer.
	CookieName = "et_session"

	// refreshInterval limits how often a sliding session is re-signed.
	refreshInterval = time.Minute
)

var (
	ErrInvalidToken   = errors.New("invalid session token")
	ErrSessionExpired = errors.New("session expired")
	ErrSessionIdle    = errors.New("session expired due to inactivity")
	ErrSessionRevoked = errors.New("session revoked")
)

// Session is the decoded content of a session token.
type Session struct {
	ID        string
	UserID    int64
	Username  string
	IssuedAt  time.Time
	LastSeen  time.Time
	ExpiresAt time.Time
}

type sessionClaims struct {
	Name     string `json:"name"`
	LastSeen int64  `json:"lsa"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies HS256 session tokens with an idle
// timeout on top of the absolute expiry.
type SessionManager struct {
	secret      []byte
	idleTimeout time.Duration
	maxAge      time.Duration
	revocations RevocationStore
	now         func() time.Time
}

func NewSessionManager(secret string, idleTimeout, maxAge time.Duration, revocations RevocationStore) *SessionManager {
	return &SessionManager{
		secret:      []byte(secret),
		idleTimeout: idleTimeout,
		maxAge:      maxAge,
		revocations: revocations,
		now:         time.Now,
	}
}

// SetClock replaces the time source.
func (m *SessionManager) SetClock(now func() time.Time) {
	m.now = now
}

func (m *SessionManager) IdleTimeout() time.Duration { return m.idleTimeout }
func (m *SessionManager) MaxAge() time.Duration      { return m.maxAge }

// Issue starts a new session for the user.
func (m *SessionManager) Issue(userID int64, username string) (string, Session, error) {
	now := m.now().Truncate(time.Second)
	s := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Username:  username,
		IssuedAt:  now,
		LastSeen:  now,
		ExpiresAt: now.Add(m.maxAge),
	}
	token, err := m.sign(s)
	if err != nil {
		return "", Session{}, err
	}
	return token, s, nil
}

// Refresh re-signs the session with LastSeen set to now. The absolute
// expiry is kept.
func (m *SessionManager) Refresh(s Session) (string, Session, error) {
	s.LastSeen = m.now().Truncate(time.Second)
	token, err := m.sign(s)
	if err != nil {
		return "", Session{}, err
	}
	return token, s, nil
}

// ShouldRefresh reports whether enough time passed since LastSeen to re-sign.
func (m *SessionManager) ShouldRefresh(s Session) bool {
	return m.now().Sub(s.LastSeen) >= refreshInterval
}

func (m *SessionManager) sign(s Session) (string, error) {
	claims := sessionClaims{
		Name:     s.Username,
		LastSeen: s.LastSeen.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(s.UserID, 10),
			ID:        s.ID,
			IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return token, nil
}

// Parse verifies the token and returns the session it carries.
func (m *SessionManager) Parse(ctx context.Context, token string) (Session, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Session{}, ErrSessionExpired
		}
		return Session{}, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 || claims.ID == "" || claims.LastSeen == 0 {
		return Session{}, ErrInvalidToken
	}

	s := Session{
		ID:        claims.ID,
		UserID:    userID,
		Username:  claims.Name,
		LastSeen:  time.Unix(claims.LastSeen, 0),
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}

	if m.now().Sub(s.LastSeen) > m.idleTimeout {
		return Session{}, ErrSessionIdle
	}

	if m.revocations != nil {
		revoked, err := m.revocations.IsRevoked(ctx, s.ID)
		if err != nil {
			return Session{}, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return Session{}, ErrSessionRevoked
		}
	}
	return s, nil
}

// Revoke blocks the session until its absolute expiry.
func (m *SessionManager) Revoke(ctx context.Context, s Session) error {
	if m.revocations == nil {
		return nil
	}
	ttl := s.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	return m.revocations.Revoke(ctx, s.ID, ttl)
}

type sessionKey struct{}

// WithSession stores the authenticated session in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session placed by WithSession.
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
