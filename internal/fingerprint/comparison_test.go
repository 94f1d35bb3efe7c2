package fingerprint

import (
	"strings"
	"testing"
)

func TestCompare(t *testing.T) {
	actual := &Fingerprint{Hash: "a1b2c3d4e5f60718293a4b5c6d7e8f90"}

	tests := []struct {
		name     string
		expected string
		wantErr  string
	}{
		{name: "full hash", expected: "a1b2c3d4e5f60718293a4b5c6d7e8f90"},
		{name: "prefix", expected: "a1b2c3d4"},
		{name: "upper case prefix", expected: "A1B2C3D4E5"},
		{name: "mismatch", expected: "ffffffff", wantErr: "fingerprint mismatch"},
		{name: "too short", expected: "a1b2", wantErr: "too short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Compare(tt.expected, actual)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
