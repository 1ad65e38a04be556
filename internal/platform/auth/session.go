package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	DefaultCookieName = "medici_session"
	sessionIssuer     = "medici"
)

// Session is the authenticated caller. RefreshToken is empty when the caller
// has not granted calendar access.
type Session struct {
	Email        string
	Name         string
	RefreshToken string
	ExpiresAt    time.Time
}

// Claims is the cookie payload. The refresh token never appears in clear.
type Claims struct {
	jwt.RegisteredClaims
	Name               string `json:"name,omitempty"`
	SealedRefreshToken string `json:"rt,omitempty"`
}

type SessionConfig struct {
	SigningKey []byte
	Sealer     *Sealer
	TTL        time.Duration
	CookieName string
	Secure     bool
}

// Manager issues, reads and clears the signed session cookie.
type Manager struct {
	key    []byte
	sealer *Sealer
	ttl    time.Duration
	cookie string
	secure bool
	now    func() time.Time
}

var ErrNoSession = errors.New("no session")

func NewManager(cfg SessionConfig) (*Manager, error) {
	if len(cfg.SigningKey) < 32 {
		return nil, fmt.Errorf("session: signing key must be at least 32 bytes")
	}
	if cfg.Sealer == nil {
		return nil, fmt.Errorf("session: sealer is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("session: ttl must be positive")
	}
	name := cfg.CookieName
	if name == "" {
		name = DefaultCookieName
	}
	return &Manager{
		key:    cfg.SigningKey,
		sealer: cfg.Sealer,
		ttl:    cfg.TTL,
		cookie: name,
		secure: cfg.Secure,
		now:    time.Now,
	}, nil
}

// Token signs s into a JWT.
func (m *Manager) Token(s Session) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   s.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Name: s.Name,
	}
	if s.RefreshToken != "" {
		sealed, err := m.sealer.Seal(s.RefreshToken)
		if err != nil {
			return "", time.Time{}, err
		}
		claims.SealedRefreshToken = sealed
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, expires, nil
}

// Parse validates a token produced by Token.
func (m *Manager) Parse(token string) (*Session, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("invalid session: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("invalid session: empty subject")
	}

	s := &Session{Email: claims.Subject, Name: claims.Name}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.SealedRefreshToken != "" {
		rt, err := m.sealer.Open(claims.SealedRefreshToken)
		if err != nil {
			return nil, fmt.Errorf("invalid session: %w", err)
		}
		s.RefreshToken = rt
	}
	return s, nil
}

// Issue sets the session cookie on the response.
func (m *Manager) Issue(c echo.Context, s Session) error {
	token, expires, err := m.Token(s)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     m.cookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// FromRequest reads and validates the session cookie. ErrNoSession means the
// cookie is absent.
func (m *Manager) FromRequest(c echo.Context) (*Session, error) {
	cookie, err := c.Cookie(m.cookie)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}
	return m.Parse(cookie.Value)
}

// Clear expires the session cookie.
func (m *Manager) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     m.cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
