package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/terraincognita07/dairyforms/internal/security"
)

const generatedPasswordLength = 16

type passwordReader func() ([]byte, error)

// RunAdminPasswordCommand prints a bcrypt hash for ADMIN_PASSWORD_HASH. With
// generate set it picks a random password and prints it too; otherwise it
// prompts twice on stdin with terminal echo off for both entries.
func RunAdminPasswordCommand(stdin *os.File, out io.Writer, generate bool) error {
	if generate {
		return runAdminPassword(out, true, nil, 0)
	}
	if stdin == nil {
		return errors.New("stdin unavailable")
	}

	restore, err := disableEcho(stdin)
	if err != nil {
		return fmt.Errorf("disable terminal echo: %w", err)
	}
	defer restore()

	return runAdminPassword(out, false, newLineReader(stdin), 0)
}

// newLineReader returns a passwordReader yielding one line of input per call.
// Both prompts share the buffer so typed-ahead input is not lost.
func newLineReader(input io.Reader) passwordReader {
	reader := bufio.NewReader(input)
	return func() ([]byte, error) {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) && line == "" {
			return nil, io.ErrUnexpectedEOF
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		return []byte(strings.TrimRight(line, "\r\n")), nil
	}
}

func runAdminPassword(out io.Writer, generate bool, read passwordReader, cost int) error {
	var password string
	if generate {
		generated, err := security.GeneratePassword(generatedPasswordLength)
		if err != nil {
			return fmt.Errorf("generate password: %w", err)
		}
		password = generated
	} else {
		entered, err := promptPassword(out, read)
		if err != nil {
			return err
		}
		password = entered
	}

	hash, err := security.HashPassword(password, cost)
	if err != nil {
		return err
	}

	if generate {
		fmt.Fprintf(out, "Admin password: %s\n", password)
	}
	fmt.Fprintf(out, "ADMIN_PASSWORD_HASH=%s\n", hash)
	return nil
}

func promptPassword(out io.Writer, read passwordReader) (string, error) {
	fmt.Fprint(out, "New admin password: ")
	first, err := read()
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	fmt.Fprint(out, "Repeat password: ")
	second, err := read()
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
