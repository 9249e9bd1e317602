package security

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("milk-collection-2024", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword() unexpected error: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", hash)
	}
	if !CheckPassword([]byte(hash), "milk-collection-2024") {
		t.Fatal("expected password to match its hash")
	}
	if CheckPassword([]byte(hash), "milk-collection-2025") {
		t.Fatal("expected a different password to be rejected")
	}
}

func TestHashPasswordRejectsShortPassword(t *testing.T) {
	t.Parallel()

	if _, err := HashPassword("   short   ", bcrypt.MinCost); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestCheckPasswordEmptyHash(t *testing.T) {
	t.Parallel()

	if CheckPassword(nil, "anything-at-all") {
		t.Fatal("expected empty hash to reject every password")
	}
}

func TestGeneratePasswordEnforcesMinimumLength(t *testing.T) {
	t.Parallel()

	password, err := GeneratePassword(4)
	if err != nil {
		t.Fatalf("GeneratePassword() unexpected error: %v", err)
	}
	if len(password) != MinPasswordLength {
		t.Fatalf("expected %d characters, got %d", MinPasswordLength, len(password))
	}
	for _, char := range password {
		if !strings.ContainsRune(GeneratedPasswordAlphabet, char) {
			t.Fatalf("generated char %q outside alphabet", char)
		}
	}
}
