package common

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// tempPasswordAlphabet excludes characters that are easy to misread:
// 0/O/o, 1/l/I.
const tempPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789!@#$%&*?"

// WipeByteArray zeroes b. Nil is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// GenerateNumericCode returns n uniformly distributed decimal digits.
func GenerateNumericCode(n int) (string, error) {
	return randomString(n, "0123456789")
}

// GenerateTempPassword returns an n character password drawn from a mixed
// alphanumeric and symbol alphabet without visually ambiguous characters.
func GenerateTempPassword(n int) (string, error) {
	return randomString(n, tempPasswordAlphabet)
}

func randomString(n int, alphabet string) (string, error) {
	var sb strings.Builder
	sb.Grow(n)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(alphabet[idx.Int64()])
	}
	return sb.String(), nil
}

// NormalizeEmail trims and lowercases an email address. All comparisons and
// storage use the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
