// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package security

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cardinalhq/bootkit/config"
)

const minKeyBytes = 64 // 512 bits for HS512

var (
	ErrNoSecret     = errors.New("no JWT secret configured")
	ErrMissingToken = errors.New("missing bearer token")
)

// Claims is the payload of the tokens issued by TokenProvider.
type Claims struct {
	Authorities string `json:"auth,omitempty"`
	jwt.RegisteredClaims
}

// AuthorityList splits the comma separated authorities claim.
func (c *Claims) AuthorityList() []string {
	if c.Authorities == "" {
		return nil
	}
	return strings.Split(c.Authorities, ",")
}

// TokenProvider issues and validates HS512 signed tokens.
type TokenProvider struct {
	key                []byte
	validity           time.Duration
	rememberMeValidity time.Duration
	now                func() time.Time
}

// NewTokenProvider prefers Base64Secret over the plain Secret.
func NewTokenProvider(cfg config.JWTConfig) (*TokenProvider, error) {
	var key []byte
	switch {
	case cfg.Base64Secret != nil && *cfg.Base64Secret != "":
		decoded, err := base64.StdEncoding.DecodeString(*cfg.Base64Secret)
		if err != nil {
			return nil, fmt.Errorf("invalid base64Secret: %w", err)
		}
		key = decoded
	case cfg.Secret != nil && *cfg.Secret != "":
		slog.Warn("Using a plain JWT secret; a Base64-encoded secret is recommended")
		key = []byte(*cfg.Secret)
	default:
		return nil, ErrNoSecret
	}
	if len(key) < minKeyBytes {
		slog.Warn("JWT key is shorter than 512 bits", slog.Int("bits", len(key)*8))
	}

	return &TokenProvider{
		key:                key,
		validity:           time.Duration(cfg.TokenValidityInSeconds) * time.Second,
		rememberMeValidity: time.Duration(cfg.TokenValidityInSecondsForRememberMe) * time.Second,
		now:                time.Now,
	}, nil
}

// CreateToken signs a token for subject. rememberMe selects the longer validity.
func (p *TokenProvider) CreateToken(subject string, authorities []string, rememberMe bool) (string, error) {
	validity := p.validity
	if rememberMe {
		validity = p.rememberMeValidity
	}
	now := p.now()
	claims := Claims{
		Authorities: strings.Join(authorities, ","),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(p.key)
}

// Validate parses token and checks signature and expiry.
func (p *TokenProvider) Validate(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return p.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithTimeFunc(p.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

type claimsKey struct{}

// ClaimsFromContext returns the claims stored by Middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// Middleware rejects requests without a valid "Authorization: Bearer" token.
func (p *TokenProvider) Middleware(next http.Handler) http.Handler {
	return p.Authenticate(nil)(next)
}

// Authenticate is Middleware with a hook called for every rejected request.
func (p *TokenProvider) Authenticate(onFailure func(*http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := p.fromRequest(r)
			if err != nil {
				slog.Debug("Rejected request", slog.String("path", r.URL.Path), slog.Any("error", err))
				if onFailure != nil {
					onFailure(r, err)
				}
				msg := "invalid token"
				if errors.Is(err, ErrMissingToken) {
					msg = err.Error()
				}
				http.Error(w, msg, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}

func (p *TokenProvider) fromRequest(r *http.Request) (*Claims, error) {
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found || token == "" {
		return nil, ErrMissingToken
	}
	claims, err := p.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}
