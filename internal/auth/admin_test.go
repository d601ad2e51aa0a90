package auth

import (
	"errors"
	"testing"
	"time"
)

func TestAdminLogin(t *testing.T) {
	tokens := NewJWTManager("test-secret-key-32-bytes-long!!!", time.Hour)
	admin, err := NewAdminAuthenticator("correct horse battery", tokens)
	if err != nil {
		t.Fatalf("NewAdminAuthenticator failed: %v", err)
	}

	t.Run("correct password", func(t *testing.T) {
		token, err := admin.Login("correct horse battery")
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		claims, err := admin.Verify(token)
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if claims.Role != "admin" {
			t.Errorf("Role = %q, want admin", claims.Role)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if _, err := admin.Login("guess"); !errors.Is(err, ErrInvalidPassword) {
			t.Errorf("error = %v, want ErrInvalidPassword", err)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		if _, err := admin.Verify(""); !errors.Is(err, ErrMissingToken) {
			t.Errorf("error = %v, want ErrMissingToken", err)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if _, err := admin.Verify("not.a.token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})
}

func TestExpiredToken(t *testing.T) {
	tokens := NewJWTManager("test-secret-key-32-bytes-long!!!", -time.Minute)
	admin, err := NewAdminAuthenticator("pw12345678", tokens)
	if err != nil {
		t.Fatalf("NewAdminAuthenticator failed: %v", err)
	}

	token, err := admin.Login("pw12345678")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := admin.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("error = %v, want ErrInvalidToken for expired token", err)
	}
}

func TestTokenSignedWithDifferentSecret(t *testing.T) {
	issuer := NewJWTManager("secret-one-secret-one-secret-one", time.Hour)
	verifier := NewJWTManager("secret-two-secret-two-secret-two", time.Hour)

	token, err := issuer.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := verifier.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("error = %v, want ErrInvalidToken for foreign signature", err)
	}
}
