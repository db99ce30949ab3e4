package diag

import (
	"fmt"

	"github.com/fatih/color"
)

// Reporter renders *Error values as human-readable, optionally colorized
// text. It never participates in the error value returned by
// compiler.Compile — this is purely a presentation concern kept separate the
// way ailang keeps errors.ErrorInfo (data) apart from REPL-side coloring.
type Reporter struct {
	Color bool
}

// NewReporter returns a Reporter that colorizes its labels when useColor is
// true; callers that pipe to a non-terminal pass false (mirroring cmd/ailang's own
// SprintFunc usage, which fatih/color disables automatically on non-ttys,
// but an explicit switch keeps this library embeddable in any host).
func NewReporter(useColor bool) *Reporter {
	return &Reporter{Color: useColor}
}

// Render formats an error for a terminal or log line.
func (r *Reporter) Render(err error) string {
	e, ok := err.(*Error)
	if !ok {
		return err.Error()
	}
	info := Registry[e.Kind]

	label := fmt.Sprintf("[%s/%s]", info.Phase, info.Category)
	if r.Color {
		label = color.New(color.FgRed, color.Bold).Sprint(label)
	}

	msg := fmt.Sprintf("%s %s", label, info.Description)
	if e.Subject != "" {
		msg += fmt.Sprintf(": %s", e.Subject)
	}
	if e.Detail != "" {
		msg += fmt.Sprintf(" (%s)", e.Detail)
	}
	return msg
}
