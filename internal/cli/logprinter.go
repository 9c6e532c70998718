package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/tansive/ideconnector/pkg/api"
)

var startLabel = color.New(color.FgGreen).Add(color.Bold)
var finishLabel = color.New(color.FgHiGreen).Add(color.Bold)
var failLabel = color.New(color.FgHiRed)
var timeLabel = color.New(color.FgHiWhite, color.Faint)

// LinePrinter prints the lines of an import log as they arrive. Marker lines and module
// errors are coloured, every line gets the time elapsed since the first one.
type LinePrinter struct {
	out   io.Writer
	start time.Time
	now   func() time.Time

	Modules  int // modules whose finish marker was seen
	Failures int // modules reported with an error line
}

// NewLinePrinter returns a LinePrinter writing to out.
func NewLinePrinter(out io.Writer) *LinePrinter {
	return &LinePrinter{out: out, now: time.Now}
}

// PrintLine prints one line of the import log.
func (p *LinePrinter) PrintLine(line string) {
	t := p.now()
	if p.start.IsZero() {
		p.start = t
	}
	relative := t.Sub(p.start)
	timeLabel.Fprintf(p.out, "[%02d:%02d.%03d] ",
		int(relative.Minutes()),
		int(relative.Seconds())%60,
		relative.Milliseconds()%1000,
	)

	switch {
	case strings.HasPrefix(line, api.ErrorLinePrefix):
		p.Failures++
		failLabel.Fprintln(p.out, "❗ "+line)
	case api.IsMarker(line) && strings.HasSuffix(line, "START "+api.MarkerPrefix):
		startLabel.Fprintln(p.out, line)
	case api.IsMarker(line):
		if strings.HasPrefix(line, api.MarkerPrefix+" Importing module ") {
			p.Modules++
		}
		finishLabel.Fprintln(p.out, line)
	default:
		fmt.Fprintln(p.out, indentMultiline(line, "              "))
	}
}

// indentMultiline adds indentation to all lines except the first in a multiline string
func indentMultiline(text, indent string) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= 1 {
		return text
	}
	for i := 1; i < len(lines); i++ {
		lines[i] = indent + lines[i]
	}
	return strings.Join(lines, "\n")
}
