package password

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Rule codes returned by Validate. Stable, machine-readable, safe to expose.
const (
	CodeTooShort      = "password_too_short"
	CodeNoUpper       = "password_no_upper"
	CodeNoLower       = "password_no_lower"
	CodeNoDigit       = "password_no_digit"
	CodeNoSpecial     = "password_no_special"
	CodeCommonPattern = "password_common_pattern"
)

type Config struct {
	MinLength         int
	SpecialChars      string
	ForbiddenPatterns []string
}

func DefaultConfig() Config {
	return Config{
		MinLength:         12,
		SpecialChars:      "!@#$%^&*()_+-=[]{}|;:,.<>?",
		ForbiddenPatterns: []string{"123", "abc", "qwerty"},
	}
}

// Validate checks every strength rule and returns the codes of all violated
// ones, so a single response can report the full list. Empty result means the
// password is acceptable.
func (c Config) Validate(pw string) []string {
	var codes []string

	if len(pw) < c.MinLength {
		codes = append(codes, CodeTooShort)
	}

	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
		if strings.ContainsRune(c.SpecialChars, r) {
			special = true
		}
	}
	if !upper {
		codes = append(codes, CodeNoUpper)
	}
	if !lower {
		codes = append(codes, CodeNoLower)
	}
	if !digit {
		codes = append(codes, CodeNoDigit)
	}
	if !special {
		codes = append(codes, CodeNoSpecial)
	}

	lowered := strings.ToLower(pw)
	for _, pattern := range c.ForbiddenPatterns {
		if strings.Contains(lowered, pattern) {
			codes = append(codes, CodeCommonPattern)
			break
		}
	}

	return codes
}

func HashPassword(pw string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
