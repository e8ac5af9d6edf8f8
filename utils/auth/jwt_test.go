package auth

import (
	"testing"
	"time"
)

func testManager(expiry time.Duration) *JWTManager {
	return NewJWTManager(JWTConfig{
		Secret:        "test-secret",
		Expiry:        expiry,
		RefreshExpiry: 2 * expiry,
		Issuer:        "museume-test",
	})
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	m := testManager(time.Hour)

	token, err := m.GenerateAccessToken(42, "member@example.com", "parent", 3)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.MemberID != 42 || claims.Email != "member@example.com" || claims.Role != "parent" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.TokenType != "access" {
		t.Errorf("TokenType = %q, want access", claims.TokenType)
	}
	if claims.TokenVersion != 3 {
		t.Errorf("TokenVersion = %d, want 3", claims.TokenVersion)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := testManager(time.Hour).GenerateAccessToken(1, "a@b.c", "child", 0)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	other := NewJWTManager(JWTConfig{Secret: "different", Expiry: time.Hour})
	if _, err := other.ValidateToken(token); err != ErrInvalidToken {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	m := testManager(-time.Minute)

	token, err := m.GenerateAccessToken(1, "a@b.c", "child", 0)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if _, err := m.ValidateToken(token); err != ErrExpiredToken {
		t.Errorf("err = %v, want ErrExpiredToken", err)
	}
}

func TestRefreshAccessTokenRequiresRefreshType(t *testing.T) {
	m := testManager(time.Hour)

	access, err := m.GenerateAccessToken(7, "a@b.c", "parent", 1)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if _, err := m.RefreshAccessToken(access, 1); err != ErrInvalidToken {
		t.Errorf("refresh from access token: err = %v, want ErrInvalidToken", err)
	}

	refresh, err := m.GenerateRefreshToken(7, "a@b.c", "parent", 1)
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	newAccess, err := m.RefreshAccessToken(refresh, 2)
	if err != nil {
		t.Fatalf("RefreshAccessToken: %v", err)
	}

	claims, err := m.ValidateToken(newAccess)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.TokenType != "access" || claims.TokenVersion != 2 {
		t.Errorf("claims = {type %q version %d}, want access / 2", claims.TokenType, claims.TokenVersion)
	}
}
