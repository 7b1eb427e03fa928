package source

import (
	"path/filepath"
	"strings"
)

// SourceFile is a scenario file held in memory so that errors can quote the
// line they point at.
type SourceFile struct {
	Name    string // Display name (e.g., "define.yaml", "<inline>")
	Path    string // Full file path (empty for inline scenarios)
	Content string
	lines   []string // Cached split lines (lazy initialization)
}

// NewSourceFile creates a new source file
func NewSourceFile(name, path, content string) *SourceFile {
	return &SourceFile{
		Name:    name,
		Path:    path,
		Content: content,
	}
}

// NewInlineSource wraps scenario text that does not come from a file.
func NewInlineSource(content string) *SourceFile {
	return &SourceFile{Name: "<inline>", Content: content}
}

// FromFile creates a SourceFile from a file path and content
func FromFile(filePath, content string) *SourceFile {
	return NewSourceFile(filepath.Base(filePath), filePath, content)
}

// Lines returns the source split into lines (cached)
func (sf *SourceFile) Lines() []string {
	if sf.lines == nil {
		sf.lines = strings.Split(sf.Content, "\n")
	}
	return sf.lines
}

// Line returns the 1-based line n without its line terminator.
func (sf *SourceFile) Line(n int) (string, bool) {
	if sf == nil {
		return "", false
	}
	lines := sf.Lines()
	if n < 1 || n > len(lines) {
		return "", false
	}
	return strings.TrimRight(lines[n-1], "\r"), true
}

// DisplayPath returns the best path for display (prefers Path, falls back to Name)
func (sf *SourceFile) DisplayPath() string {
	if sf.Path != "" {
		return sf.Path
	}
	return sf.Name
}

// IsFile returns true if this represents an actual file (has a path)
func (sf *SourceFile) IsFile() bool {
	return sf.Path != ""
}
