package auth

import (
	"errors"
	"testing"
	"time"

	"cloudvault/internal/domain"
)

func testUser() *domain.User {
	return &domain.User{
		ID:          1,
		Username:    "alice",
		Enabled:     true,
		Authorities: []string{"files:read", "files:write"},
	}
}

func TestJWTCodec_IssueAndVerify(t *testing.T) {
	t.Parallel()

	codec, err := NewJWTCodec([]byte("super-secret"), time.Hour)
	if err != nil {
		t.Fatalf("NewJWTCodec error: %v", err)
	}

	token, err := codec.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if token.Value == "" {
		t.Fatal("expected non-empty token value")
	}
	if !token.ExpiresAt.After(token.IssuedAt) {
		t.Fatalf("expiry %v is not after issue time %v", token.ExpiresAt, token.IssuedAt)
	}

	claims, err := codec.Verify(token.Value)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.Subject != "alice" {
		t.Fatalf("subject mismatch: got %q want %q", claims.Subject, "alice")
	}
	if claims.Scope != "files:read files:write" {
		t.Fatalf("scope mismatch: got %q", claims.Scope)
	}
}

func TestJWTCodec_VerifyExpired(t *testing.T) {
	t.Parallel()

	codec, err := NewJWTCodec([]byte("secret"), time.Hour)
	if err != nil {
		t.Fatalf("NewJWTCodec error: %v", err)
	}

	expiredCodec := &JWTCodec{secret: []byte("secret"), validity: -time.Minute}
	token, err := expiredCodec.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = codec.Verify(token.Value)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestJWTCodec_VerifyWrongSecret(t *testing.T) {
	t.Parallel()

	right, _ := NewJWTCodec([]byte("right-secret"), time.Hour)
	wrong, _ := NewJWTCodec([]byte("wrong-secret"), time.Hour)

	token, err := right.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = wrong.Verify(token.Value)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestJWTCodec_VerifyMalformed(t *testing.T) {
	t.Parallel()

	codec, _ := NewJWTCodec([]byte("secret"), time.Hour)

	_, err := codec.Verify("not.a.jwt")
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestNewJWTCodec_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewJWTCodec(nil, time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewJWTCodec([]byte("secret"), 0); err == nil {
		t.Fatal("expected error for non-positive validity")
	}
}
