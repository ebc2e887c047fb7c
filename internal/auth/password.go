package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

const minPasswordLength = 8

// commonPasswords is a short deny-list of passwords seen constantly in
// credential dumps. Matching is case-insensitive.
var commonPasswords = map[string]struct{}{
	"password":    {},
	"password1":   {},
	"password123": {},
	"12345678":    {},
	"123456789":   {},
	"1234567890":  {},
	"qwerty123":   {},
	"iloveyou":    {},
	"sunshine":    {},
	"admin123":    {},
	"welcome1":    {},
	"letmein1":    {},
}

// ValidatePassword checks a candidate password against the account policy
// and returns one message per failed rule. An empty slice means the
// password is acceptable. username and email are used for the similarity
// rule and may be empty during registration field validation.
func ValidatePassword(password, username, email string) []string {
	var errs []string

	if len(password) < minPasswordLength {
		errs = append(errs, "This password is too short. It must contain at least 8 characters.")
	}

	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		errs = append(errs, "This password is too common.")
	}

	if password != "" && isNumeric(password) {
		errs = append(errs, "This password is entirely numeric.")
	}

	if tooSimilar(password, username) || tooSimilar(password, emailLocalPart(email)) {
		errs = append(errs, "The password is too similar to your other account details.")
	}

	return errs
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// tooSimilar flags passwords that contain, or are contained by, the given
// attribute, ignoring case. Attributes shorter than 4 runes are skipped to
// avoid rejecting passwords over incidental two-letter overlaps.
func tooSimilar(password, attribute string) bool {
	if len(attribute) < 4 || password == "" {
		return false
	}
	p := strings.ToLower(password)
	a := strings.ToLower(attribute)
	return strings.Contains(p, a) || strings.Contains(a, p)
}

func emailLocalPart(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
