package source

import "fmt"

// Severity values match the LSP numbering.
type Severity uint8

const (
	SeverityError       Severity = 1
	SeverityWarning     Severity = 2
	SeverityInformation Severity = 3
	SeverityHint        Severity = 4
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInformation:
		return "information"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// Tag values match the LSP numbering.
type Tag uint8

const (
	TagUnnecessary Tag = 1
	TagDeprecated  Tag = 2
)

// Code identifies one kind of diagnostic and its default severity.
type Code struct {
	ID       string
	Severity Severity
	Tags     []Tag
}

var (
	// Value given for a dictionary or list key.
	UNT1001 = Code{ID: "UNT1001", Severity: SeverityWarning}
	// Unterminated quoted string.
	UNT1002 = Code{ID: "UNT1002", Severity: SeverityWarning}
	// Value given for a flag property.
	UNT1003 = Code{ID: "UNT1003", Severity: SeverityWarning}
	// Unrecognized escape sequence.
	UNT1004 = Code{ID: "UNT1004", Severity: SeverityWarning}
	// Missing component of a legacy composite property.
	UNT1007 = Code{ID: "UNT1007", Severity: SeverityWarning}
	// Value is not one of the allowed enum values.
	UNT1014 = Code{ID: "UNT1014", Severity: SeverityWarning}
	UNT1018 = Code{ID: "UNT1018", Severity: SeverityWarning, Tags: []Tag{TagDeprecated}}
	// Number outside of the allowed range.
	UNT1028 = Code{ID: "UNT1028", Severity: SeverityWarning}
	// Localized property with no localization file.
	UNT1030 = Code{ID: "UNT1030", Severity: SeverityWarning}

	// Dictionary is not closed.
	UNT2001 = Code{ID: "UNT2001", Severity: SeverityError}
	// List is not closed.
	UNT2002 = Code{ID: "UNT2002", Severity: SeverityError}
	// Flag set to false, which the game treats as present.
	UNT2003 = Code{ID: "UNT2003", Severity: SeverityError}
	// Value can not be parsed as the property's type.
	UNT2004 = Code{ID: "UNT2004", Severity: SeverityError}
	// Wrong kind of value, for example a list where a dictionary is expected.
	UNT2013 = Code{ID: "UNT2013", Severity: SeverityError}
)

type Diagnostic struct {
	Code     string
	Message  string
	Range    Range
	Severity Severity
	Tags     []Tag
}

func (c Code) New(r Range, format string, args ...any) Diagnostic {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	var tags []Tag
	if len(c.Tags) > 0 {
		tags = append(tags, c.Tags...)
	}
	return Diagnostic{
		Code:     c.ID,
		Message:  msg,
		Range:    r,
		Severity: c.Severity,
		Tags:     tags,
	}
}

// Sink receives diagnostics as they are produced.
type Sink interface {
	AddDiagnostic(d Diagnostic)
}

// Diagnostics is an ordered Sink.
type Diagnostics []Diagnostic

func (d *Diagnostics) AddDiagnostic(diag Diagnostic) {
	*d = append(*d, diag)
}
