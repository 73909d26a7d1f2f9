package validation

import (
	"errors"
	"path"
	"regexp"
	"strings"
	"unicode"

	"github.com/oklog/ulid/v2"
)

var (
	ErrInvalidInput = errors.New("invalid input")

	// Letters, digits and the characters found in e-mail style logins.
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.@+-]{3,50}$`)
)

const MaxFilenameLength = 255

// SanitizeString trims whitespace and removes control characters other
// than newline and tab.
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)

	var builder strings.Builder
	for _, r := range input {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

// CleanFilename reduces an uploaded filename to its base name. The result
// keeps the extension, which selects the sequence parser.
func CleanFilename(name string) (string, error) {
	name = SanitizeString(strings.ReplaceAll(name, `\`, "/"))
	name = strings.TrimSpace(path.Base(name))

	if name == "" || name == "." || name == "/" {
		return "", errors.New("file name cannot be empty")
	}
	if len(name) > MaxFilenameLength {
		return "", errors.New("file name must not exceed 255 characters")
	}
	return name, nil
}

// ValidateReportID accepts only canonical ULIDs.
func ValidateReportID(id string) error {
	if _, err := ulid.ParseStrict(id); err != nil {
		return errors.New("report id must be a ULID")
	}
	return nil
}

func ValidateUsername(username string) error {
	username = SanitizeString(username)

	if username == "" {
		return errors.New("username cannot be empty")
	}
	if len(username) < 3 {
		return errors.New("username must be at least 3 characters")
	}
	if len(username) > 50 {
		return errors.New("username must not exceed 50 characters")
	}
	if !usernameRegex.MatchString(username) {
		return errors.New("username may contain only letters, numbers and _ . @ + -")
	}
	return nil
}

// ValidatePassword requires 8-128 characters mixing upper, lower, digit
// and symbol.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if len(password) > 128 {
		return errors.New("password must not exceed 128 characters")
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	switch {
	case !hasUpper:
		return errors.New("password must contain at least one uppercase letter")
	case !hasLower:
		return errors.New("password must contain at least one lowercase letter")
	case !hasNumber:
		return errors.New("password must contain at least one number")
	case !hasSpecial:
		return errors.New("password must contain at least one special character")
	}
	return nil
}

// ClampLimit applies the default when limit is unset and caps it at max.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return limit
}
