package fingerprint

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/pgviews/pgviews/view"
)

// Fingerprint identifies the DDL produced by one sync pass
type Fingerprint struct {
	Hash       string `json:"hash"` // SHA256 of the ordered statements
	Statements int    `json:"statements"`
}

type hashedStatement struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args,omitempty"`
}

// Compute generates a fingerprint for the given ordered statements.
// Arguments are hashed through their JSON encoding.
func Compute(statements []view.Statement) (*Fingerprint, error) {
	hashed := make([]hashedStatement, len(statements))
	for i, stmt := range statements {
		hashed[i] = hashedStatement{SQL: stmt.SQL, Args: stmt.Args}
	}

	hash, err := hashObject(hashed)
	if err != nil {
		return nil, fmt.Errorf("failed to compute statement hash: %w", err)
	}

	return &Fingerprint{
		Hash:       hash,
		Statements: len(statements),
	}, nil
}

// hashObject computes a SHA256 hash of any object
func hashObject(obj interface{}) (string, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash), nil
}

// Short returns the first eight characters of the hash
func (f *Fingerprint) Short() string {
	if f == nil {
		return ""
	}
	if len(f.Hash) >= 8 {
		return f.Hash[:8]
	}
	return f.Hash
}

// String returns a human-readable representation of the fingerprint
func (f *Fingerprint) String() string {
	return fmt.Sprintf("DDL fingerprint: %s (%d statements)", f.Short(), f.Statements)
}
