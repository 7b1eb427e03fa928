package errors

import "fmt"

// Position is a location inside a scenario file. Line and Column are 1-based,
// as reported by the YAML decoder; zero means unknown.
type Position struct {
	File   string
	Line   int
	Column int
}

// IsValid reports whether the position carries a line.
func (p Position) IsValid() bool { return p.Line > 0 }

func (p Position) String() string {
	switch {
	case p.File != "" && p.IsValid():
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
	case p.IsValid():
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	case p.File != "":
		return p.File
	default:
		return "<unknown>"
	}
}
