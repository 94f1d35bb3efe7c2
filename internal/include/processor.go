// Package include expands psql-style \i directives in view body files.
package include

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Matches: \i filename or \i filename; (with optional semicolon)
var includeRegex = regexp.MustCompile(`^\s*\\i\s+([^\s;]+)\s*;?\s*$`)

// Processor expands \i directives. Every file it reads must live under the
// root directory it was created with.
type Processor struct {
	root    string
	visited map[string]bool
}

// NewProcessor creates a processor confined to root
func NewProcessor(root string) *Processor {
	return &Processor{
		root:    root,
		visited: make(map[string]bool),
	}
}

// ProcessFile reads a file relative to the root and returns its content with
// every include expanded in place
func (p *Processor) ProcessFile(filename string) (string, error) {
	p.visited = make(map[string]bool)

	path, err := p.resolve(filename, p.root)
	if err != nil {
		return "", err
	}
	return p.expandFile(path)
}

func (p *Processor) expandFile(path string) (string, error) {
	if p.visited[path] {
		return "", fmt.Errorf("circular include detected: %s", path)
	}
	p.visited[path] = true
	// The same file may still be included from separate branches.
	defer delete(p.visited, path)

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", path, err)
	}

	expanded, err := p.expand(string(content), filepath.Dir(path))
	if err != nil {
		return "", fmt.Errorf("failed to process includes in %s: %w", path, err)
	}
	return expanded, nil
}

func (p *Processor) expand(content string, dir string) (string, error) {
	lines := strings.Split(content, "\n")
	var result strings.Builder

	for i, line := range lines {
		matches := includeRegex.FindStringSubmatch(line)
		if matches == nil {
			result.WriteString(line)
			if i < len(lines)-1 {
				result.WriteString("\n")
			}
			continue
		}

		path, err := p.resolve(matches[1], dir)
		if err != nil {
			return "", fmt.Errorf("line %d: %w", i+1, err)
		}
		included, err := p.expandFile(path)
		if err != nil {
			return "", fmt.Errorf("line %d: %w", i+1, err)
		}
		result.WriteString(included)
		if !strings.HasSuffix(included, "\n") {
			result.WriteString("\n")
		}
	}

	return result.String(), nil
}

// resolve turns name into an absolute path under the root, relative to dir
// unless name is already absolute
func (p *Processor) resolve(name string, dir string) (string, error) {
	clean := filepath.Clean(name)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("directory traversal not allowed: %s", name)
	}
	if !filepath.IsAbs(clean) {
		clean = filepath.Join(dir, clean)
	}

	abs, err := filepath.Abs(clean)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	rootAbs, err := filepath.Abs(p.root)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute root path: %w", err)
	}

	rel, err := filepath.Rel(rootAbs, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("file %s is outside the directory %s", name, p.root)
	}

	if _, err := os.Stat(abs); os.IsNotExist(err) {
		return "", fmt.Errorf("file does not exist: %s", abs)
	}
	return abs, nil
}
