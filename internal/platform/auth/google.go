package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/medici/medici/internal/platform/apperr"
	"github.com/medici/medici/internal/platform/kv"
)

const (
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	stateTTL          = 10 * time.Minute
	statePrefix       = "oauth_state:"
)

// IdentityScopes are requested on every login.
var IdentityScopes = []string{"openid", "email", "profile"}

// Identity is what the login flow learned about the caller from Google.
type Identity struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// LoginHook runs after Google confirmed the identity and before the session
// is issued. Returning an error aborts the login.
type LoginHook func(ctx context.Context, id Identity) error

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	// Endpoint defaults to google.Endpoint.
	Endpoint oauth2.Endpoint
	// UserInfoURL defaults to Google's OpenID Connect userinfo endpoint.
	UserInfoURL string
	// AfterLogin is where the browser lands once the cookie is set.
	AfterLogin string
}

// GoogleLogin implements the OAuth2 authorization code flow against Google
// and exchanges the result for a session cookie.
type GoogleLogin struct {
	oauth       *oauth2.Config
	userInfoURL string
	afterLogin  string
	states      kv.Store
	sessions    *Manager
	onLogin     LoginHook
	logger      zerolog.Logger
}

func NewGoogleLogin(cfg GoogleConfig, states kv.Store, sessions *Manager, onLogin LoginHook, logger zerolog.Logger) *GoogleLogin {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = google.Endpoint
	}
	userInfo := cfg.UserInfoURL
	if userInfo == "" {
		userInfo = googleUserInfoURL
	}
	after := cfg.AfterLogin
	if after == "" {
		after = "/"
	}
	return &GoogleLogin{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     endpoint,
		},
		userInfoURL: userInfo,
		afterLogin:  after,
		states:      states,
		sessions:    sessions,
		onLogin:     onLogin,
		logger:      logger,
	}
}

func (g *GoogleLogin) RegisterRoutes(e *echo.Group) {
	e.GET("/google/login", g.Login)
	e.GET("/google/callback", g.Callback)
	e.POST("/logout", g.Logout)
}

func (g *GoogleLogin) Login(c echo.Context) error {
	state, err := gonanoid.New()
	if err != nil {
		return apperr.Internal(fmt.Errorf("generate oauth state: %w", err))
	}
	if err := g.states.Set(c.Request().Context(), statePrefix+state, "1", stateTTL); err != nil {
		return apperr.Storage("store oauth state", err)
	}
	url := g.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	return c.Redirect(http.StatusFound, url)
}

func (g *GoogleLogin) Callback(c echo.Context) error {
	ctx := c.Request().Context()

	if reason := c.QueryParam("error"); reason != "" {
		g.logger.Warn().Str("reason", reason).Msg("google login declined")
		return apperr.Unauthorized("google sign-in was cancelled")
	}

	state := c.QueryParam("state")
	if state == "" {
		return apperr.Unauthorized("login expired, please start again")
	}
	if _, err := g.states.GetDel(ctx, statePrefix+state); err != nil {
		if errors.Is(err, kv.ErrMissing) {
			return apperr.Unauthorized("login expired, please start again")
		}
		return apperr.Storage("consume oauth state", err)
	}

	code := c.QueryParam("code")
	if code == "" {
		return apperr.Field("code", "authorization code is required")
	}

	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		g.logger.Error().Err(err).Msg("google code exchange failed")
		return apperr.External("exchange authorization code", err)
	}

	id, err := g.fetchIdentity(ctx, token)
	if err != nil {
		g.logger.Error().Err(err).Msg("google userinfo failed")
		return apperr.External("fetch google identity", err)
	}
	if id.Email == "" || !id.EmailVerified {
		return apperr.Unauthorized("your google account email is not verified")
	}
	id.Email = strings.ToLower(id.Email)

	if g.onLogin != nil {
		if err := g.onLogin(ctx, id); err != nil {
			return err
		}
	}

	if err := g.sessions.Issue(c, Session{Email: id.Email, Name: id.Name, RefreshToken: token.RefreshToken}); err != nil {
		return apperr.Internal(err)
	}
	g.logger.Info().Str("email", id.Email).Bool("calendar_access", token.RefreshToken != "").Msg("doctor signed in")
	return c.Redirect(http.StatusFound, g.afterLogin)
}

func (g *GoogleLogin) fetchIdentity(ctx context.Context, token *oauth2.Token) (Identity, error) {
	client := g.oauth.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return Identity{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Identity{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}
	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return Identity{}, fmt.Errorf("decode userinfo: %w", err)
	}
	return id, nil
}

func (g *GoogleLogin) Logout(c echo.Context) error {
	g.sessions.Clear(c)
	return c.NoContent(http.StatusNoContent)
}
