package source

import "fmt"

// Position is a zero-based line and byte column.
type Position struct {
	Line      int
	Character int
}

func (p Position) Before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Character < other.Character
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Character+1)
}

// Range is half-open: End is one past the last character.
type Range struct {
	Start Position
	End   Position
}

func NewRange(line, startChar, endLine, endChar int) Range {
	return Range{
		Start: Position{Line: line, Character: startChar},
		End:   Position{Line: endLine, Character: endChar},
	}
}

func (r Range) Contains(p Position) bool {
	return !p.Before(r.Start) && p.Before(r.End)
}

// Overlaps reports whether the two ranges share at least one position.
// An empty range overlaps a range that contains its start.
func (r Range) Overlaps(other Range) bool {
	if r.Start == r.End {
		return other.Contains(r.Start) || other.Start == r.Start
	}
	if other.Start == other.End {
		return r.Contains(other.Start) || r.Start == other.Start
	}
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

func (r Range) String() string {
	return r.Start.String() + "-" + r.End.String()
}
