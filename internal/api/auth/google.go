package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"yoga-studio/internal/api/response"
	authsvc "yoga-studio/internal/service/auth"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleIssuer   = "https://accounts.google.com"
	stateCookie    = "oauth_state"
	stateCookieAge = 300
)

// IdentityVerifier checks a raw ID token and returns its identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (authsvc.GoogleIdentity, error)
}

type GoogleOptions struct {
	ClientID         string
	ClientSecret     string
	RedirectURL      string
	FrontendRedirect string
	SecureCookie     bool
}

// Google drives the authorization-code flow.
type Google struct {
	oauth            *oauth2.Config
	frontendRedirect string
	secureCookie     bool
	log              *logrus.Logger

	mu       sync.Mutex
	verifier IdentityVerifier
}

func NewGoogle(opts GoogleOptions, log *logrus.Logger) *Google {
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		frontendRedirect: opts.FrontendRedirect,
		secureCookie:     opts.SecureCookie,
		log:              log,
	}
}

// oidcVerifier verifies signatures against Google's published keys.
type oidcVerifier struct {
	v *oidc.IDTokenVerifier
}

func (o oidcVerifier) Verify(ctx context.Context, raw string) (authsvc.GoogleIdentity, error) {
	tok, err := o.v.Verify(ctx, raw)
	if err != nil {
		return authsvc.GoogleIdentity{}, fmt.Errorf("auth.oidcVerifier: %w", err)
	}
	var id authsvc.GoogleIdentity
	if err := tok.Claims(&id); err != nil {
		return authsvc.GoogleIdentity{}, fmt.Errorf("auth.oidcVerifier: %w", err)
	}
	return id, nil
}

// identityVerifier discovers the provider on first use and retries after a
// failed discovery.
func (g *Google) identityVerifier(ctx context.Context) (IdentityVerifier, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.verifier != nil {
		return g.verifier, nil
	}
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("auth.identityVerifier: %w", err)
	}
	g.verifier = oidcVerifier{v: provider.Verifier(&oidc.Config{ClientID: g.oauth.ClientID})}
	return g.verifier, nil
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GoogleStart redirects to Google's consent screen.
func (h *Handler) GoogleStart(c *gin.Context) {
	if h.google == nil {
		response.Fail(c, http.StatusNotFound, "Google sign-in is not enabled")
		return
	}
	state, err := randomState()
	if err != nil {
		response.Error(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, stateCookieAge, "/", "", h.google.secureCookie, true)
	c.Redirect(http.StatusFound, h.google.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline))
}

// GoogleCallback finishes the flow and issues the same session token as Login.
func (h *Handler) GoogleCallback(c *gin.Context) {
	g := h.google
	if g == nil {
		response.Fail(c, http.StatusNotFound, "Google sign-in is not enabled")
		return
	}

	state := c.Query("state")
	code := c.Query("code")
	if code == "" || state == "" {
		response.Fail(c, http.StatusBadRequest, "Missing code or state")
		return
	}
	cookieState, err := c.Cookie(stateCookie)
	if err != nil || cookieState != state {
		response.Fail(c, http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", g.secureCookie, true)

	ctx := c.Request.Context()
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		g.log.WithError(err).Warn("Google code exchange failed")
		response.Fail(c, http.StatusUnauthorized, "Failed to exchange code")
		return
	}
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		response.Fail(c, http.StatusUnauthorized, "Missing id_token")
		return
	}

	verifier, err := g.identityVerifier(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	identity, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		g.log.WithError(err).Warn("Google ID token rejected")
		response.Fail(c, http.StatusUnauthorized, "Invalid id_token")
		return
	}
	if identity.Email == "" {
		response.Fail(c, http.StatusUnauthorized, "Google account has no email")
		return
	}

	session, err := h.svc.GoogleLogin(ctx, identity)
	if err != nil {
		response.Error(c, err)
		return
	}

	if g.frontendRedirect == "" {
		response.OK(c, session)
		return
	}
	c.Redirect(http.StatusFound, g.frontendRedirect+"?token="+url.QueryEscape(session.Token))
}
