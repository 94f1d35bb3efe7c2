package util

import (
	"strings"
	"unicode"

	"github.com/lib/pq"
)

// PostgreSQL reserved words that need quoting when used as identifiers
var reservedWords = map[string]bool{
	"all":        true,
	"analyse":    true,
	"analyze":    true,
	"and":        true,
	"as":         true,
	"check":      true,
	"column":     true,
	"constraint": true,
	"create":     true,
	"default":    true,
	"desc":       true,
	"distinct":   true,
	"from":       true,
	"grant":      true,
	"group":      true,
	"limit":      true,
	"order":      true,
	"select":     true,
	"table":      true,
	"to":         true,
	"user":       true,
	"view":       true,
	"where":      true,
	"with":       true,
}

// NeedsQuoting checks if an identifier needs to be quoted
func NeedsQuoting(identifier string) bool {
	if identifier == "" {
		return false
	}

	if reservedWords[strings.ToLower(identifier)] {
		return true
	}

	// PostgreSQL folds unquoted identifiers to lowercase
	for _, r := range identifier {
		if unicode.IsUpper(r) {
			return true
		}
	}

	for i, r := range identifier {
		if i == 0 && !unicode.IsLetter(r) && r != '_' {
			return true
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return true
		}
	}

	return false
}

// QuoteIdentifier adds quotes to an identifier if needed
func QuoteIdentifier(identifier string) string {
	if NeedsQuoting(identifier) {
		return pq.QuoteIdentifier(identifier)
	}
	return identifier
}

// QualifiedName returns namespace.name with each part quoted as needed
func QualifiedName(namespace, name string) string {
	return QuoteIdentifier(namespace) + "." + QuoteIdentifier(name)
}

// QuoteRole renders a role for GRANT statements. PUBLIC is a keyword, not a
// role name, and stays unquoted.
func QuoteRole(role string) string {
	if strings.EqualFold(role, "public") {
		return "PUBLIC"
	}
	return QuoteIdentifier(role)
}
