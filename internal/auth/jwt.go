package auth

import (
	"QueryFilter/internal/config"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const claimsContextKey contextKey = "jwt_claims"

// JWTValidator проверяет Bearer-токены одним алгоритмом из конфига.
type JWTValidator struct {
	cfg       config.JWTConfig
	key       any
	expected  string
	clockFunc func() time.Time
}

func NewJWTValidator(cfg config.JWTConfig) (*JWTValidator, error) {
	switch {
	case strings.TrimSpace(cfg.Issuer) == "":
		return nil, errors.New("jwt issuer is required")
	case strings.TrimSpace(cfg.Audience) == "":
		return nil, errors.New("jwt audience is required")
	case strings.TrimSpace(cfg.ValidationType) == "":
		return nil, errors.New("jwt validation type is required")
	}
	v := &JWTValidator{
		cfg:       cfg,
		expected:  strings.ToUpper(strings.TrimSpace(cfg.ValidationType)),
		clockFunc: time.Now,
	}

	var err error
	switch v.expected {
	case "HS256":
		if cfg.HMACSecret == "" {
			return nil, errors.New("jwt hmac secret is required for HS256")
		}
		v.key = []byte(cfg.HMACSecret)
	case "RS256":
		var pem []byte
		if pem, err = publicKeyPEM(cfg); err == nil {
			v.key, err = jwt.ParseRSAPublicKeyFromPEM(pem)
		}
	case "ES256":
		var pem []byte
		if pem, err = publicKeyPEM(cfg); err == nil {
			v.key, err = jwt.ParseECPublicKeyFromPEM(pem)
		}
	default:
		return nil, fmt.Errorf("unsupported jwt validation type: %s", cfg.ValidationType)
	}
	if err != nil {
		return nil, fmt.Errorf("jwt %s key: %w", v.expected, err)
	}
	return v, nil
}

// ValidateToken checks signature, issuer, audience and the exp/nbf/iat
// window, returning the claims.
func (v *JWTValidator) ValidateToken(token string) (map[string]any, error) {
	skew := v.cfg.ClockSkewSec
	if skew < 0 {
		skew = 0
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return v.key, nil },
		jwt.WithValidMethods([]string{v.expected}),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithAudience(v.cfg.Audience),
		jwt.WithLeeway(time.Duration(skew)*time.Second),
		jwt.WithTimeFunc(v.clockFunc),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid jwt: %w", err)
	}
	for _, key := range []string{"nbf", "iat"} {
		if _, ok := claims[key]; !ok {
			return nil, fmt.Errorf("jwt claim %s is required", key)
		}
	}
	return map[string]any(claims), nil
}

// BearerToken extracts the token of an "Authorization: Bearer ..." header.
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func WithClaims(ctx context.Context, claims map[string]any) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

func ClaimsFromContext(ctx context.Context) (map[string]any, bool) {
	claims, ok := ctx.Value(claimsContextKey).(map[string]any)
	return claims, ok
}

// PermissionFromClaims reads the per-field allowed values carried by the
// claim, e.g. {"location_id": [1000, 3000]}. A missing claim means no
// restriction.
func PermissionFromClaims(claims map[string]any, claim string) (map[string][]any, error) {
	raw, ok := claims[claim]
	if !ok || raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("jwt claim %s must be an object", claim)
	}
	permission := make(map[string][]any, len(obj))
	for field, values := range obj {
		switch vs := values.(type) {
		case []any:
			permission[field] = vs
		case nil:
			permission[field] = []any{}
		default:
			permission[field] = []any{vs}
		}
	}
	return permission, nil
}

// publicKeyPEM: AUTH_JWT_PUBLIC_KEY приоритетнее AUTH_JWT_PUBLIC_KEY_PATH.
func publicKeyPEM(cfg config.JWTConfig) ([]byte, error) {
	if key := strings.TrimSpace(cfg.PublicKeyPEM); key != "" {
		return []byte(key), nil
	}
	if strings.TrimSpace(cfg.PublicKeyPath) == "" {
		return nil, errors.New("jwt public key is required")
	}
	data, err := os.ReadFile(cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read jwt public key: %w", err)
	}
	return data, nil
}
