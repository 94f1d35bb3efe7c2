package fingerprint

import (
	"fmt"
	"strings"
)

// Compare checks a computed fingerprint against an expected hash, which may
// be abbreviated to a prefix of at least eight characters
func Compare(expected string, actual *Fingerprint) error {
	expected = strings.ToLower(strings.TrimSpace(expected))
	if len(expected) < 8 {
		return fmt.Errorf("expected fingerprint %q is too short (need at least 8 characters)", expected)
	}
	if strings.HasPrefix(actual.Hash, expected) {
		return nil
	}

	expectedPreview := expected
	if len(expectedPreview) > 16 {
		expectedPreview = expectedPreview[:16]
	}

	actualPreview := actual.Hash
	if len(actualPreview) > 16 {
		actualPreview = actualPreview[:16]
	}

	return fmt.Errorf("DDL fingerprint mismatch - expected: %s, actual: %s",
		expectedPreview, actualPreview)
}
