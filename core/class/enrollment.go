package class

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ" // base 36, upper-cased
	CodeLength   = 6
)

var codeAlphabetLen = big.NewInt(int64(len(codeAlphabet)))

// GenerateCode returns a random enrollment code of CodeLength base 36 characters.
func GenerateCode() (string, error) {
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, codeAlphabetLen)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeCode makes user-typed codes comparable with stored ones.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidCode tells whether code has the shape of a generated enrollment code.
func IsValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(codeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
