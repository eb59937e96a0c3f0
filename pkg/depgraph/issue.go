package depgraph

import "fmt"

// Severity classifies how serious an issue is for the final analysis result.
type Severity int

const (
	// SeverityHint is informational and does not affect the result.
	SeverityHint Severity = iota
	// SeverityWarning indicates degraded but usable output.
	SeverityWarning
	// SeverityError indicates missing or unreliable data for the node.
	SeverityError
)

var severityNames = map[Severity]string{
	SeverityHint:    "hint",
	SeverityWarning: "warning",
	SeverityError:   "error",
}

// String returns the serialized name of the severity.
func (s Severity) String() string {
	if n, ok := severityNames[s]; ok {
		return n
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	for v, n := range severityNames {
		if n == string(text) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown severity %q", string(text))
}

// Issue is a diagnostic record attached to a graph node or a project during
// analysis, tagged with the component that produced it.
type Issue struct {
	Source   string   `json:"source" bson:"source"` // Producing component (e.g., "resolver", "npm")
	Severity Severity `json:"severity" bson:"severity"`
	Message  string   `json:"message" bson:"message"`
}

// Error returns an error-severity issue from the given source.
func Error(source, format string, args ...any) Issue {
	return Issue{Source: source, Severity: SeverityError, Message: fmt.Sprintf(format, args...)}
}

// Warning returns a warning-severity issue from the given source.
func Warning(source, format string, args ...any) Issue {
	return Issue{Source: source, Severity: SeverityWarning, Message: fmt.Sprintf(format, args...)}
}

// Hint returns a hint-severity issue from the given source.
func Hint(source, format string, args ...any) Issue {
	return Issue{Source: source, Severity: SeverityHint, Message: fmt.Sprintf(format, args...)}
}

// Equal reports whether two issues are field-identical. Only exact
// duplicates are suppressed when the same node is reached through different
// paths; issues that differ in any field are both kept.
func (i Issue) Equal(other Issue) bool {
	return i == other
}
