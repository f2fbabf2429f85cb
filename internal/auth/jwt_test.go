package auth

import (
	"QueryFilter/internal/config"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func hs256Config() config.JWTConfig {
	return config.JWTConfig{
		ValidationType: "HS256",
		Issuer:         "auth-service",
		Audience:       "queryfilter",
		HMACSecret:     "super-secret",
		ClockSkewSec:   0,
	}
}

func TestHS256ValidateToken(t *testing.T) {
	now := time.Unix(1730000000, 0)
	cfg := hs256Config()
	v, err := NewJWTValidator(cfg)
	if err != nil {
		t.Fatalf("NewJWTValidator failed: %v", err)
	}
	v.clockFunc = func() time.Time { return now }

	valid := func() jwt.MapClaims {
		return jwt.MapClaims{
			"iss": cfg.Issuer, "aud": cfg.Audience, "sub": "user-1",
			"iat": now.Unix() - 10, "nbf": now.Unix() - 5, "exp": now.Unix() + 30,
		}
	}
	cases := []struct {
		name   string
		mutate func(jwt.MapClaims)
		secret string
		ok     bool
	}{
		{"valid", func(jwt.MapClaims) {}, cfg.HMACSecret, true},
		{"expired", func(c jwt.MapClaims) { c["exp"] = now.Unix() - 1 }, cfg.HMACSecret, false},
		{"wrong audience", func(c jwt.MapClaims) { c["aud"] = "other" }, cfg.HMACSecret, false},
		{"wrong issuer", func(c jwt.MapClaims) { c["iss"] = "someone" }, cfg.HMACSecret, false},
		{"missing nbf", func(c jwt.MapClaims) { delete(c, "nbf") }, cfg.HMACSecret, false},
		{"missing iat", func(c jwt.MapClaims) { delete(c, "iat") }, cfg.HMACSecret, false},
		{"wrong secret", func(jwt.MapClaims) {}, "other-secret", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(c)
			claims, err := v.ValidateToken(signHS256(t, tc.secret, c))
			if tc.ok {
				if err != nil {
					t.Fatalf("ValidateToken failed: %v", err)
				}
				if claims["sub"] != "user-1" {
					t.Fatalf("unexpected sub: %v", claims["sub"])
				}
				return
			}
			if err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestNewJWTValidatorConfigErrors(t *testing.T) {
	cases := map[string]func(*config.JWTConfig){
		"no issuer":      func(c *config.JWTConfig) { c.Issuer = "" },
		"no audience":    func(c *config.JWTConfig) { c.Audience = " " },
		"no secret":      func(c *config.JWTConfig) { c.HMACSecret = "" },
		"unknown alg":    func(c *config.JWTConfig) { c.ValidationType = "PS512" },
		"rs256 no key":   func(c *config.JWTConfig) { c.ValidationType = "RS256" },
		"rs256 bad pem":  func(c *config.JWTConfig) { c.ValidationType = "RS256"; c.PublicKeyPEM = "garbage" },
		"es256 bad path": func(c *config.JWTConfig) { c.ValidationType = "ES256"; c.PublicKeyPath = "/nonexistent/key.pem" },
	}
	for name, mutate := range cases {
		cfg := hs256Config()
		mutate(&cfg)
		if _, err := NewJWTValidator(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestRS256ValidateToken(t *testing.T) {
	now := time.Unix(1730000000, 0)
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey failed: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	cfg := config.JWTConfig{
		ValidationType: "RS256",
		Issuer:         "auth-service",
		Audience:       "queryfilter",
		PublicKeyPEM:   string(pubPEM),
		ClockSkewSec:   0,
	}

	v, err := NewJWTValidator(cfg)
	if err != nil {
		t.Fatalf("NewJWTValidator failed: %v", err)
	}
	v.clockFunc = func() time.Time { return now }

	claims := jwt.MapClaims{
		"iss": cfg.Issuer,
		"aud": cfg.Audience,
		"iat": now.Unix() - 10,
		"nbf": now.Unix() - 10,
		"exp": now.Unix() + 60,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(priv)
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}

	if _, err := v.ValidateToken(token); err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	// an HS256 token must not pass an RS256 validator
	if _, err := v.ValidateToken(signHS256(t, "x", claims)); err == nil {
		t.Fatalf("expected alg mismatch error")
	}
}

func TestPermissionFromClaims(t *testing.T) {
	claims := map[string]any{
		"permission": map[string]any{
			"location_id": []any{float64(1000), float64(3000)},
			"status":      "NEW",
		},
	}
	perm, err := PermissionFromClaims(claims, "permission")
	if err != nil {
		t.Fatalf("PermissionFromClaims failed: %v", err)
	}
	if len(perm["location_id"]) != 2 || perm["status"][0] != "NEW" {
		t.Fatalf("unexpected permission: %v", perm)
	}

	if perm, err := PermissionFromClaims(claims, "missing"); err != nil || perm != nil {
		t.Fatalf("missing claim: %v %v", perm, err)
	}
	if _, err := PermissionFromClaims(map[string]any{"permission": "all"}, "permission"); err == nil {
		t.Fatalf("expected error for non-object claim")
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/parse", nil)
	if _, ok := BearerToken(r); ok {
		t.Fatalf("no header must not yield a token")
	}
	r.Header.Set("Authorization", "bearer abc.def.ghi")
	if tok, ok := BearerToken(r); !ok || tok != "abc.def.ghi" {
		t.Fatalf("unexpected token %q %v", tok, ok)
	}
}

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return token
}
