// Package sqlutil quotes and validates MySQL identifiers taken from configuration.
package sqlutil

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxIdentifierLength is the MySQL limit for table and column names.
const MaxIdentifierLength = 64

// QuoteIdentifier quotes a MySQL identifier with backticks, doubling any
// embedded backtick.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Identifiers from configuration are restricted to alphanumerics and underscore.
var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

// IsValidIdentifier reports whether name is safe to interpolate after quoting.
func IsValidIdentifier(name string) bool {
	return len(name) <= MaxIdentifierLength && validIdentifierRegex.MatchString(name)
}

// ValidateIdentifier is IsValidIdentifier with a descriptive error.
func ValidateIdentifier(name string) error {
	if !IsValidIdentifier(name) {
		return &InvalidIdentifierError{Name: name}
	}
	return nil
}

// QuoteIdentifierSafe quotes name after validating it.
func QuoteIdentifierSafe(name string) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", err
	}
	return QuoteIdentifier(name), nil
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier %q (must be 1-%d alphanumeric characters or underscores)", e.Name, MaxIdentifierLength)
}
