package main

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ajholden/DatasetDB/core"
)

func TestConnectionStateIdentity(t *testing.T) {
	state := &ConnectionState{}
	if state.Identity() != nil {
		t.Error("Expected nil identity for an unauthenticated connection")
	}

	state.identity = &core.Identity{Name: "Alice", Email: "alice@example.com"}
	state.authenticated = true
	state.tokenExpiry = time.Now().Add(time.Hour)

	identity := state.Identity()
	if identity == nil || identity.Name != "Alice" {
		t.Fatalf("Expected authenticated identity, got %v", identity)
	}

	// An expired token no longer yields an identity.
	state.tokenExpiry = time.Now().Add(-time.Minute)
	if state.IsAuthenticated() {
		t.Error("Expected expired connection to be unauthenticated")
	}
	if state.Identity() != nil {
		t.Error("Expected nil identity once the token expired")
	}
}

func TestParseAuthCommand(t *testing.T) {
	authType, token, err := parseAuthCommand("AUTH JWT abc.def.ghi")
	if err != nil {
		t.Fatalf("Failed to parse AUTH command: %v", err)
	}
	if authType != "JWT" || token != "abc.def.ghi" {
		t.Errorf("Expected JWT/abc.def.ghi, got %s/%s", authType, token)
	}

	if _, _, err := parseAuthCommand("AUTH BASIC user:pass"); err == nil {
		t.Error("Expected unsupported auth type to be rejected")
	}
	if _, _, err := parseAuthCommand("AUTH JWT"); err == nil {
		t.Error("Expected missing credentials to be rejected")
	}
}

func TestValidateJWT(t *testing.T) {
	server := &Server{authConfig: &AuthConfig{
		Enabled:   true,
		JWTSecret: "test-secret",
		Issuer:    "datasetdb-test",
	}}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"name":  "Alice",
		"email": "alice@example.com",
		"iss":   "datasetdb-test",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	result := server.validateJWT(signed)
	if result.err != nil {
		t.Fatalf("Failed to validate token: %v", result.err)
	}
	if result.identity.Name != "Alice" || result.identity.Email != "alice@example.com" {
		t.Errorf("Expected identity claims, got %+v", result.identity)
	}
	if result.expiresAt.IsZero() {
		t.Error("Expected expiry to be extracted from the token")
	}

	wrongKey, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"name": "Mallory",
		"iss":  "datasetdb-test",
	}).SignedString([]byte("other-secret"))
	if result := server.validateJWT(wrongKey); result.err == nil {
		t.Error("Expected token signed with wrong key to be rejected")
	}

	wrongIssuer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"name": "Alice",
		"iss":  "somewhere-else",
	}).SignedString([]byte("test-secret"))
	if result := server.validateJWT(wrongIssuer); result.err == nil {
		t.Error("Expected token with wrong issuer to be rejected")
	}
}
