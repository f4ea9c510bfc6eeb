package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/upb/llm-arena/config"
	"go.uber.org/zap"
)

const sessionIssuer = "llm-arena"

var ErrInvalidSession = errors.New("invalid session token")

// sessionClaims carries the session id in the subject.
type sessionClaims struct {
	jwt.RegisteredClaims
}

// SessionManager issues and verifies the signed session cookie that keys a
// browser's history.
type SessionManager struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
	logger     *zap.Logger
	now        func() time.Time
}

// NewSessionManager creates a new SessionManager
func NewSessionManager(cfg config.SessionConfig, logger *zap.Logger) *SessionManager {
	name := cfg.CookieName
	if name == "" {
		name = "arena_session"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &SessionManager{
		secret:     []byte(cfg.Secret),
		cookieName: name,
		ttl:        ttl,
		secure:     cfg.Secure,
		logger:     logger,
		now:        time.Now,
	}
}

// Issue signs a token for the given session id
func (m *SessionManager) Issue(sessionID uuid.UUID) (string, error) {
	now := m.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   sessionID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns its session id
func (m *SessionManager) Parse(tokenString string) (uuid.UUID, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidSession)
	}
	return id, nil
}

// Middleware puts the caller's session id in the request context. A missing
// or invalid cookie starts a fresh session.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
			id, err := m.Parse(cookie.Value)
			if err == nil {
				next.ServeHTTP(w, r.WithContext(WithSessionID(ctx, id)))
				return
			}
			m.logger.Debug("discarding session cookie",
				zap.String("request_id", GetRequestIDFromContext(ctx)),
				zap.Error(err))
		}

		id := uuid.New()
		token, err := m.Issue(id)
		if err != nil {
			// the request still gets a session, it just will not survive
			m.logger.Error("failed to issue session", zap.Error(err))
		} else {
			http.SetCookie(w, &http.Cookie{
				Name:     m.cookieName,
				Value:    token,
				Path:     "/",
				Expires:  m.now().Add(m.ttl),
				HttpOnly: true,
				Secure:   m.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(WithSessionID(ctx, id)))
	})
}
