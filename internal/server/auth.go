package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/ANGELCJR/stock-vision-sub000/internal/config"
	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/internal/httpx"
)

var errMissingSubject = errors.New("token has no subject")

// Authenticator resolves the request identity from an HS256 bearer token.
// Browsers cannot set headers on websocket upgrades, so a ?token= query
// parameter is accepted as well.
type Authenticator struct {
	secret        []byte
	required      bool
	defaultUserID string
	log           zerolog.Logger
}

// NewAuthenticator creates an authenticator from the auth settings
func NewAuthenticator(cfg config.AuthConfig, log zerolog.Logger) *Authenticator {
	return &Authenticator{
		secret:        []byte(cfg.JWTSecret),
		required:      cfg.Required,
		defaultUserID: cfg.DefaultUserID,
		log:           log.With().Str("component", "auth").Logger(),
	}
}

// Middleware attaches a domain.Identity to the request context. Without a
// token the default user is used unless auth is required. A token that is
// present but invalid is always rejected.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := tokenFromRequest(r)

		if raw == "" {
			if a.required {
				httpx.WriteError(w, a.log, http.StatusUnauthorized, "authentication required")
				return
			}
			id := domain.Identity{UserID: a.defaultUserID}
			next.ServeHTTP(w, r.WithContext(domain.WithIdentity(r.Context(), id)))
			return
		}

		subject, err := a.Verify(raw)
		if err != nil {
			a.log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected token")
			httpx.WriteError(w, a.log, http.StatusUnauthorized, "invalid token")
			return
		}

		id := domain.Identity{UserID: subject, Subject: subject}
		next.ServeHTTP(w, r.WithContext(domain.WithIdentity(r.Context(), id)))
	})
}

// Verify checks the HS256 signature and time claims of raw and returns
// its subject.
func (a *Authenticator) Verify(raw string) (string, error) {
	if len(a.secret) == 0 {
		return "", fmt.Errorf("no signing secret configured")
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errMissingSubject
	}
	return claims.Subject, nil
}

// IssueToken signs an HS256 token for subject. A zero ttl yields a token
// without expiry.
func IssueToken(secret, subject string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("a signing secret is required")
	}
	if strings.TrimSpace(subject) == "" {
		return "", errMissingSubject
	}

	claims := jwt.RegisteredClaims{
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
		// Any other scheme fails verification.
		return h
	}
	return r.URL.Query().Get("token")
}
