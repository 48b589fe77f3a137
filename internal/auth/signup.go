package auth

import (
	"regexp"
	"strings"
	"unicode"
)

var commonPasswords = map[string]struct{}{
	"password": {}, "letmein": {}, "123456": {}, "password123": {}, "admin123": {},
	"qwerty": {}, "abc123": {}, "monkey": {}, "dragon": {}, "football": {},
	"iloveyou": {}, "trustno1": {}, "1234567": {}, "12345678": {}, "123456789": {},
}

var reservedUsernames = map[string]struct{}{
	"admin": {}, "root": {}, "user": {}, "test": {}, "demo": {},
	"null": {}, "undefined": {}, "sample": {},
}

var (
	usernameCharset = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)
	repeatedRun     = regexp.MustCompile(`(.)\1{5,}`)
)

var keyboardSequences = []string{
	"abcdefghijklmnopqrstuvwxyz", "0123456789",
	"qwertyuiop", "asdfghjkl", "zxcvbnm",
}

// ValidateSignup checks a username/password pair against the signup format
// rules. The username is normalized (trimmed, lowercased) before validation;
// the normalized form is returned on success. This is a pure function with no
// storage access; uniqueness is checked separately at registration time.
func ValidateSignup(username, password string) (string, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return "", ErrBadFormat("username and password cannot be empty or whitespace")
	}

	username = strings.ToLower(strings.TrimSpace(username))
	password = strings.TrimSpace(password)

	if len(username) < 4 || len(username) > 32 {
		return "", ErrBadFormat("username must be between 4 and 32 characters")
	}
	if !usernameCharset.MatchString(username) {
		return "", ErrBadFormat("username can only contain letters, numbers, underscore, and period")
	}
	if unicode.IsDigit(rune(username[0])) {
		return "", ErrBadFormat("username cannot start with a number")
	}
	if strings.ContainsAny(username[:1], "_.") || strings.ContainsAny(username[len(username)-1:], "_.") {
		return "", ErrBadFormat("username cannot start or end with underscore or period")
	}
	if strings.Contains(username, "__") || strings.Contains(username, "..") {
		return "", ErrBadFormat("username cannot contain consecutive underscores or periods")
	}
	if isAllDigits(username) {
		return "", ErrBadFormat("username cannot be entirely numeric")
	}
	if _, reserved := reservedUsernames[username]; reserved {
		return "", ErrBadFormat("this username is not allowed")
	}
	if username == strings.ToLower(password) {
		return "", ErrBadFormat("username and password cannot be the same")
	}

	if len(password) < 8 || len(password) > 64 {
		return "", ErrBadFormat("password must be between 8 and 64 characters")
	}
	if complexityClasses(password) < 3 {
		return "", ErrBadFormat("password must contain at least 3 of: uppercase, lowercase, numbers, special characters")
	}
	lower := strings.ToLower(password)
	if _, common := commonPasswords[lower]; common {
		return "", ErrBadFormat("password is too common, choose a stronger password")
	}
	if repeatedRun.MatchString(password) {
		return "", ErrBadFormat("password cannot contain repetitive characters")
	}
	if containsSequence(lower) {
		return "", ErrBadFormat("password cannot contain sequential characters or keyboard patterns")
	}
	if strings.Contains(lower, username) {
		return "", ErrBadFormat("password cannot contain your username")
	}

	return username, nil
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func complexityClasses(password string) int {
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(`!@#$%^&*()_+-=[]{}|;:,.<>?`, r):
			hasSpecial = true
		}
	}

	count := 0
	for _, ok := range []bool{hasUpper, hasLower, hasDigit, hasSpecial} {
		if ok {
			count++
		}
	}
	return count
}

// containsSequence reports whether the password contains a six-character run
// of an alphabet, digit, or keyboard-row sequence, forwards or backwards.
func containsSequence(passwordLower string) bool {
	for _, seq := range keyboardSequences {
		for i := 0; i+6 <= len(seq); i++ {
			window := seq[i : i+6]
			if strings.Contains(passwordLower, window) || strings.Contains(passwordLower, reverse(window)) {
				return true
			}
		}
	}
	return false
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
