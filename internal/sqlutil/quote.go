// Package sqlutil provides SQL utility functions for GoSeed.
package sqlutil

import (
	"regexp"
	"strings"
)

// QuoteIdentifier quotes a MySQL identifier (table name, column name) with backticks.
// It escapes any existing backticks by doubling them.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// validIdentifierRegex restricts identifiers to alphanumerics and underscores.
var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

// IsValidIdentifier checks if a name is a valid MySQL identifier.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// QuoteIdentifierSafe quotes a MySQL identifier after validating it.
// Returns an error if the identifier contains invalid characters.
func QuoteIdentifierSafe(name string) (string, error) {
	if !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	return QuoteIdentifier(name), nil
}

// CollectionTablePrefix is prepended to every collection table.
const CollectionTablePrefix = "doc_"

// CollectionTable maps a collection slug such as "clinic-treatments" to its
// quoted table name (`doc_clinic_treatments`).
func CollectionTable(collection string) (string, error) {
	name := CollectionTablePrefix + strings.ReplaceAll(collection, "-", "_")
	if collection == "" || !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: collection}
	}
	return QuoteIdentifier(name), nil
}

// JSONPath builds a MySQL JSON path expression ($."field") for a document
// field name. Quotes inside the name are escaped.
func JSONPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must contain only alphanumeric characters, underscores or dashes)"
}
