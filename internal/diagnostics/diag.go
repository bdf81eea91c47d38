package diagnostics

import "time"

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Codes emitted by the twinkle runtime.
const (
	CountChanged = "COUNT.CHANGED"
	InputFault   = "INPUT.FAULT"
	FlushFault   = "STRIP.FLUSH"
	TestRunning  = "TEST.RUNNING"
	TestDone     = "TEST.DONE"
	TestUnknown  = "TEST.UNKNOWN"
)

type Diagnostic struct {
	Time           time.Time      `json:"time"`
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

func New(sev Severity, code, summary string) Diagnostic {
	return Diagnostic{Time: time.Now(), Severity: sev, Code: code, Summary: summary}
}

// With attaches one evidence entry and returns d for chaining.
func (d Diagnostic) With(key string, v any) Diagnostic {
	if d.Evidence == nil {
		d.Evidence = map[string]any{}
	}
	d.Evidence[key] = v
	return d
}
