package version

import (
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	v := Version()
	if v == "" {
		t.Fatal("expected embedded version")
	}
	if strings.ContainsAny(v, " \n") {
		t.Errorf("version should be trimmed, got %q", v)
	}
}

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, "pgviews v"+Version()+"@") {
		t.Errorf("unexpected version line %q", s)
	}
	if !strings.Contains(s, Platform()) {
		t.Errorf("expected platform in %q", s)
	}
}
