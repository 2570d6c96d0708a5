package service

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	// bcrypt only reads the first 72 bytes.
	MaxPasswordBytes = 72
)

// commonPasswords is a short deny-list of the most frequently leaked passwords.
var commonPasswords = map[string]struct{}{}

func init() {
	for _, p := range strings.Fields(`
		123456 123456789 12345678 password qwerty123 qwerty 1234567890 1234567 111111
		123123 abc123 password1 iloveyou 1q2w3e4r 000000 qwertyuiop 123321 dragon
		sunshine princess letmein monkey football baseball welcome welcome1 admin
		admin123 login master hello freedom whatever trustno1 passw0rd password123
		superman batman shadow michael jennifer computer starwars charlie
		1qaz2wsx zaq12wsx qazwsx asdfghjkl asdfgh 987654321 654321 666666 121212
		changeme secret letmein1 p@ssw0rd football1 iloveyou1 q1w2e3r4 abcd1234
		mustang access killer pepper jordan23 harley ranger hunter buster soccer
		hockey daniel thomas andrew tigger summer internet service canada
	`) {
		commonPasswords[p] = struct{}{}
	}
}

// ValidatePassword applies the password policy and returns every violated
// rule as a human-readable message. attrs are user attributes (email, names,
// company) the password must not resemble.
func ValidatePassword(password string, attrs ...string) []string {
	var problems []string

	if len([]rune(password)) < MinPasswordLength {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}
	if len(password) > MaxPasswordBytes {
		problems = append(problems, "This password is too long. It must contain at most 72 bytes.")
	}
	if password != "" && isNumeric(password) {
		problems = append(problems, "This password is entirely numeric.")
	}
	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		problems = append(problems, "This password is too common.")
	}
	if tooSimilar(password, attrs) {
		problems = append(problems, "The password is too similar to your personal information.")
	}
	return problems
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// tooSimilar flags passwords that contain, or are contained in, an attribute
// or one of its word parts of at least four characters.
func tooSimilar(password string, attrs []string) bool {
	pw := strings.ToLower(password)
	if len(pw) < 3 {
		return false
	}
	for _, attr := range attrs {
		for _, part := range attributeParts(attr) {
			if len(part) < 4 {
				continue
			}
			if strings.Contains(pw, part) || strings.Contains(part, pw) {
				return true
			}
		}
	}
	return false
}

func attributeParts(attr string) []string {
	attr = strings.ToLower(attr)
	if attr == "" {
		return nil
	}
	parts := strings.FieldsFunc(attr, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return append(parts, attr)
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// dummyHash is compared against when the user does not exist, so unknown
// emails cost the same as wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("fleetcore-timing-equaliser"), bcrypt.DefaultCost)
