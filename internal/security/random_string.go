package security

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// GeneratedPasswordAlphabet omits characters that are easy to misread on a
// printed handover sheet (0/O, 1/l/I).
const GeneratedPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

var (
	errNegativeLength = errors.New("length must be non-negative")
	errEmptyAlphabet  = errors.New("alphabet must not be empty")
)

// RandomString draws length characters uniformly from alphabet using crypto/rand.
func RandomString(length int, alphabet string) (string, error) {
	switch {
	case length < 0:
		return "", errNegativeLength
	case length == 0:
		return "", nil
	case alphabet == "":
		return "", errEmptyAlphabet
	}

	size := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		pick, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[pick.Int64()]
	}
	return string(out), nil
}

// GeneratePassword returns a random admin password of at least
// MinPasswordLength characters.
func GeneratePassword(length int) (string, error) {
	if length < MinPasswordLength {
		length = MinPasswordLength
	}
	return RandomString(length, GeneratedPasswordAlphabet)
}
