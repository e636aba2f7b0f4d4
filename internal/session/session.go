package session

import (
	"errors"
	"sync"
	"time"

	"app/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// ErrUnauthenticated is returned when no live session exists.
var ErrUnauthenticated = errors.New("unauthenticated")

// Provider yields the current session, or nil when signed out. It must be
// queried fresh before every remote write; callers may not cache its
// result across operations.
type Provider interface {
	Current() *model.Session
}

// Claims is the JWT claims structure of the session access token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenProvider derives the session from a stored JWT access token. The
// token is re-validated on every Current call so an expired session is
// noticed immediately rather than on the next refresh.
type TokenProvider struct {
	secret []byte

	mu    sync.RWMutex
	token string
}

// NewTokenProvider creates a TokenProvider validating tokens against the
// given HMAC secret.
func NewTokenProvider(secret string) *TokenProvider {
	return &TokenProvider{secret: []byte(secret)}
}

// SetToken installs a new access token, e.g. after sign-in or refresh.
func (p *TokenProvider) SetToken(token string) {
	p.mu.Lock()
	p.token = token
	p.mu.Unlock()
}

// Clear removes the stored token, signing the session out.
func (p *TokenProvider) Clear() {
	p.mu.Lock()
	p.token = ""
	p.mu.Unlock()
}

// Current implements Provider. It returns nil when no token is stored or
// the token fails validation.
func (p *TokenProvider) Current() *model.Session {
	p.mu.RLock()
	token := p.token
	p.mu.RUnlock()

	if token == "" {
		return nil
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return &model.Session{
		UserID:      claims.Subject,
		Email:       claims.Email,
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}
}

// Guard wraps a Provider and gates remote operations on a live session.
type Guard struct {
	provider Provider
	logger   zerolog.Logger
}

// NewGuard creates a Guard with a scoped logger.
func NewGuard(provider Provider, logger zerolog.Logger) *Guard {
	return &Guard{
		provider: provider,
		logger:   logger.With().Str("service", "SessionGuard").Logger(),
	}
}

// Require returns the current session or ErrUnauthenticated. Callers that
// degrade to local-only mode check for the sentinel and return a no-op
// instead of an error.
func (g *Guard) Require() (*model.Session, error) {
	sess := g.provider.Current()
	if sess == nil {
		g.logger.Debug().Msg("No live session; remote operation skipped")
		return nil, ErrUnauthenticated
	}
	return sess, nil
}

// SignedIn reports whether a live session exists right now.
func (g *Guard) SignedIn() bool {
	return g.provider.Current() != nil
}
