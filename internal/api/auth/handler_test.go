package auth

import (
	"testing"
	"time"

	"compliance-training/internal/domain/users"

	"github.com/golang-jwt/jwt/v5"
)

func TestIsPasswordStrong(t *testing.T) {
	cases := map[string]bool{
		"short1":      false,
		"lettersonly": false,
		"12345678":    false,
		"hazmat2024":  true,
	}
	for pw, want := range cases {
		if got := isPasswordStrong(pw); got != want {
			t.Errorf("isPasswordStrong(%q) = %v, want %v", pw, got, want)
		}
	}
}

func TestIsEmailValid(t *testing.T) {
	if !isEmailValid("dana.reyes+ops@example.co") {
		t.Fatal("valid email rejected")
	}
	for _, bad := range []string{"dana", "dana@", "dana@example", "@example.com"} {
		if isEmailValid(bad) {
			t.Errorf("isEmailValid(%q) = true", bad)
		}
	}
}

func TestIssueTokenClaims(t *testing.T) {
	secret := []byte("s3cret")
	user := users.User{ID: 42, Email: "dana@example.com", Role: users.RoleAdmin}

	raw, err := IssueToken(secret, user, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	tok, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) { return secret, nil })
	if err != nil || !tok.Valid {
		t.Fatalf("parse: %v", err)
	}
	claims := tok.Claims.(jwt.MapClaims)
	if claims["user_id"].(float64) != 42 || claims["role"] != "admin" || claims["email"] != "dana@example.com" {
		t.Fatalf("claims = %v", claims)
	}
}
