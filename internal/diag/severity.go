package diag

// Severity ranks a diagnostic; only SevError fails a unit.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]string{
	SevInfo:    "info",
	SevWarning: "warning",
	SevError:   "error",
}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "unknown"
}

// Fails reports whether diagnostics of this severity fail the unit.
func (s Severity) Fails() bool { return s >= SevError }
