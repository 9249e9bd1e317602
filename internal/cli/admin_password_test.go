package cli

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/terraincognita07/dairyforms/internal/security"
	"golang.org/x/crypto/bcrypt"
)

func hashFromOutput(t *testing.T, output string) string {
	t.Helper()
	for _, line := range strings.Split(output, "\n") {
		if value, ok := strings.CutPrefix(line, "ADMIN_PASSWORD_HASH="); ok {
			return value
		}
	}
	t.Fatalf("no hash line in output %q", output)
	return ""
}

func TestRunAdminPasswordHashesPromptedPassword(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	read := newLineReader(strings.NewReader("milk-collection-2024\r\nmilk-collection-2024"))
	if err := runAdminPassword(&out, false, read, bcrypt.MinCost); err != nil {
		t.Fatalf("runAdminPassword() unexpected error: %v", err)
	}

	hash := hashFromOutput(t, out.String())
	if !security.CheckPassword([]byte(hash), "milk-collection-2024") {
		t.Fatal("printed hash does not match the entered password")
	}
	if strings.Contains(out.String(), "milk-collection-2024") {
		t.Fatal("prompted password must not be echoed")
	}
}

func TestRunAdminPasswordRejectsMismatch(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	read := newLineReader(strings.NewReader("milk-collection-2024\nmilk-collection-2025\n"))
	if err := runAdminPassword(&out, false, read, bcrypt.MinCost); err == nil {
		t.Fatal("expected mismatched passwords to fail")
	}
}

func TestRunAdminPasswordRejectsShortPassword(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	read := newLineReader(strings.NewReader("cows\ncows\n"))
	err := runAdminPassword(&out, false, read, bcrypt.MinCost)
	if !errors.Is(err, security.ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestRunAdminPasswordGenerate(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	if err := runAdminPassword(&out, true, nil, bcrypt.MinCost); err != nil {
		t.Fatalf("runAdminPassword() unexpected error: %v", err)
	}

	var password string
	for _, line := range strings.Split(out.String(), "\n") {
		if value, ok := strings.CutPrefix(line, "Admin password: "); ok {
			password = value
		}
	}
	if len(password) != generatedPasswordLength {
		t.Fatalf("expected %d character password, got %q", generatedPasswordLength, password)
	}
	if !security.CheckPassword([]byte(hashFromOutput(t, out.String())), password) {
		t.Fatal("printed hash does not match the generated password")
	}
}

func TestRunAdminPasswordFailsOnTruncatedInput(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	read := newLineReader(strings.NewReader("milk-collection-2024\n"))
	err := runAdminPassword(&out, false, read, bcrypt.MinCost)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF for a missing second entry, got %v", err)
	}
}
