// Package auth issues and validates the bearer tokens that identify activity owners.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"example.com/habittracker/internal/domain"
)

// Token types carried in the "typ" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Config holds signing and verification parameters.
type Config struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Claims represents the payload extracted from a JWT.
type Claims struct {
	Subject   string
	Email     string
	Name      string
	TokenType string
	Scopes    map[string]struct{}
	ExpiresAt time.Time
}

// ErrMissingToken is returned when no token was presented.
var ErrMissingToken = errors.New("missing bearer token")

// ErrInvalidToken wraps parsing/validation errors.
var ErrInvalidToken = errors.New("invalid bearer token")

// Parse validates a JWT and returns normalized claims.
func Parse(token string, cfg Config) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithIssuer(cfg.Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	subject, _ := claims["sub"].(string)
	tokenType, _ := claims["typ"].(string)
	if subject == "" || tokenType == "" {
		return nil, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing expiry", ErrInvalidToken)
	}

	return &Claims{
		Subject:   subject,
		Email:     email,
		Name:      name,
		TokenType: tokenType,
		Scopes:    normalizeScopes(claims["scopes"]),
		ExpiresAt: exp.Time,
	}, nil
}

func normalizeScopes(value interface{}) map[string]struct{} {
	out := make(map[string]struct{})
	switch v := value.(type) {
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok && str != "" {
				out[str] = struct{}{}
			}
		}
	case []string:
		for _, str := range v {
			if str != "" {
				out[str] = struct{}{}
			}
		}
	case string:
		for _, str := range strings.Fields(v) {
			out[str] = struct{}{}
		}
	}
	return out
}

// HasScope reports whether the claim set includes the provided scope.
func (c *Claims) HasScope(scope string) bool {
	if c == nil {
		return false
	}
	_, ok := c.Scopes[scope]
	return ok
}

// Issuer signs access and refresh tokens for domain users.
type Issuer struct {
	cfg Config
	now func() time.Time
}

// NewIssuer constructs an Issuer. Zero TTLs fall back to 15 minutes and 7 days.
func NewIssuer(cfg Config) *Issuer {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Issuer{cfg: cfg, now: time.Now}
}

// IssueAccess signs an access token carrying the given scopes.
func (i *Issuer) IssueAccess(subject, email, name string, scopes []string) (string, error) {
	return i.sign(jwt.MapClaims{
		"sub":    subject,
		"email":  email,
		"name":   name,
		"typ":    TokenTypeAccess,
		"scopes": scopes,
	}, i.cfg.AccessTTL)
}

// IssuePair implements domain.TokenIssuer.
func (i *Issuer) IssuePair(user domain.User) (domain.TokenPair, error) {
	access, err := i.IssueAccess(user.ID, user.Email, user.Name, DefaultScopes)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := i.sign(jwt.MapClaims{
		"sub": user.ID,
		"typ": TokenTypeRefresh,
	}, i.cfg.RefreshTTL)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ParseRefresh implements domain.TokenIssuer.
func (i *Issuer) ParseRefresh(token string) (string, error) {
	claims, err := Parse(token, i.cfg)
	if err != nil {
		return "", err
	}
	if claims.TokenType != TokenTypeRefresh {
		return "", fmt.Errorf("%w: not a refresh token", ErrInvalidToken)
	}
	return claims.Subject, nil
}

func (i *Issuer) sign(claims jwt.MapClaims, ttl time.Duration) (string, error) {
	now := i.now().UTC()
	claims["iss"] = i.cfg.Issuer
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(ttl).Unix()
	// jti keeps two tokens minted in the same second distinct.
	claims["jti"] = fmt.Sprintf("%d", now.UnixNano())
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.cfg.Secret))
}
