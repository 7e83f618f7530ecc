package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	EnvAccessToken = "CHATGPT_ACCESS_TOKEN"
	EnvAccountID   = "CHATGPT_ACCOUNT_ID"

	authFileName = "auth.json"
)

// TokenData represents the tokens stored in auth.json.
type TokenData struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	AccountID    string `json:"account_id"`
}

// AuthFile represents the auth.json contents written by the Codex login tool.
type AuthFile struct {
	Tokens      TokenData `json:"tokens"`
	LastRefresh string    `json:"last_refresh"`
}

// Source tells where a credential value came from.
type Source string

const (
	SourceNone Source = ""
	SourceEnv  Source = "env"
	SourceFile Source = "file"
	SourceJWT  Source = "id_token"
)

// AuthFilePath returns the auth.json location under home.
func AuthFilePath(home string) string {
	return filepath.Join(home, authFileName)
}

// ReadAuthFile reads and parses <home>/auth.json.
// A missing file is reported as fs.ErrNotExist.
func ReadAuthFile(home string) (*AuthFile, error) {
	data, err := os.ReadFile(AuthFilePath(home))
	if err != nil {
		return nil, err
	}
	var af AuthFile
	if err := json.Unmarshal(data, &af); err != nil {
		return nil, fmt.Errorf("parse %s: %w", AuthFilePath(home), err)
	}
	return &af, nil
}

// DeriveAccountID extracts the ChatGPT account ID from an id_token's claims.
func DeriveAccountID(idToken string) string {
	if idToken == "" {
		return ""
	}
	claims, err := ParseJWTClaims(idToken)
	if err != nil {
		return ""
	}
	return AuthClaim(claims, "chatgpt_account_id")
}

// Credentials is the identity presented to the upstream for one request.
type Credentials struct {
	Token         *oauth2.Token
	AccountID     string
	TokenSource   Source
	AccountSource Source
	IDToken       string
}

// AccessToken returns the bearer token value.
func (c *Credentials) AccessToken() string {
	if c == nil || c.Token == nil {
		return ""
	}
	return c.Token.AccessToken
}

// Expired reports whether the token carries an exp claim in the past.
func (c *Credentials) Expired() bool {
	if c == nil || c.Token == nil || c.Token.Expiry.IsZero() {
		return false
	}
	return time.Now().After(c.Token.Expiry)
}

// Apply sets Authorization and chatgpt-account-id on an upstream request.
func (c *Credentials) Apply(req *http.Request) {
	c.Token.SetAuthHeader(req)
	if c.AccountID != "" {
		req.Header.Set("chatgpt-account-id", c.AccountID)
	}
}

// Resolver assembles credentials from the environment and <Home>/auth.json.
// It holds no state between calls; every Resolve re-reads both sources so a
// token rotated on disk is picked up by the next request.
type Resolver struct {
	Home   string
	Logger *slog.Logger
}

// NewResolver returns a resolver reading auth.json from home.
func NewResolver(home string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{Home: home, Logger: logger}
}

// Resolve returns the credentials for one request, or an *AuthError when no
// non-empty access token is available.
func (r *Resolver) Resolve() (*Credentials, error) {
	logger := r.logger()

	var tokens TokenData
	if r.Home != "" {
		af, err := ReadAuthFile(r.Home)
		switch {
		case err == nil:
			tokens = af.Tokens
		case errors.Is(err, fs.ErrNotExist):
		default:
			logger.Warn("auth.file_unreadable", "path", AuthFilePath(r.Home), "error", err)
		}
	}

	creds := &Credentials{IDToken: strings.TrimSpace(tokens.IDToken)}

	access := strings.TrimSpace(os.Getenv(EnvAccessToken))
	creds.TokenSource = SourceEnv
	if access == "" {
		access = strings.TrimSpace(tokens.AccessToken)
		creds.TokenSource = SourceFile
	}
	if access == "" {
		path := ""
		if r.Home != "" {
			path = AuthFilePath(r.Home)
		}
		return nil, &AuthError{Path: path, Err: ErrNoCredentials}
	}

	creds.AccountID = strings.TrimSpace(os.Getenv(EnvAccountID))
	creds.AccountSource = SourceEnv
	if creds.AccountID == "" {
		creds.AccountID = strings.TrimSpace(tokens.AccountID)
		creds.AccountSource = SourceFile
	}
	if creds.AccountID == "" {
		creds.AccountID = DeriveAccountID(creds.IDToken)
		creds.AccountSource = SourceJWT
	}
	if creds.AccountID == "" {
		creds.AccountSource = SourceNone
	}

	creds.Token = &oauth2.Token{
		AccessToken: access,
		TokenType:   "Bearer",
		Expiry:      TokenExpiry(access),
	}
	if creds.Expired() {
		logger.Warn("auth.token_expired", "source", creds.TokenSource, "expired_at", creds.Token.Expiry.UTC().Format(time.RFC3339))
	}
	return creds, nil
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}
