package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"voxnote/internal/planner"
	"voxnote/internal/workflow"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func eventKind(t workflow.EventType) statusKind {
	switch t {
	case workflow.EventCompleted, workflow.EventTranscribed, workflow.EventAnalyzed:
		return statusOK
	case workflow.EventSkipped, workflow.EventWarning:
		return statusWarn
	case workflow.EventError:
		return statusError
	default:
		return statusInfo
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// eventPrinter writes workflow events as status lines. Summary events are
// left to the command, which renders them as a table.
type eventPrinter struct {
	out      io.Writer
	colorize bool
}

func newEventPrinter(out io.Writer) *eventPrinter {
	return &eventPrinter{out: out, colorize: shouldColorize(out)}
}

func (p *eventPrinter) Print(ev workflow.Event) {
	switch ev.Type {
	case workflow.EventSummary:
		return
	case workflow.EventPlan:
		p.printPlan(ev)
		return
	}
	label := string(ev.Type)
	if ev.File != "" {
		label = filepath.Base(ev.File)
	}
	fmt.Fprintln(p.out, renderStatusLine(label, eventKind(ev.Type), ev.Message, p.colorize))
	if ev.Type == workflow.EventMetadata {
		if summary, ok := ev.Data["summary"]; ok {
			p.printIndented(summary)
		}
	}
}

func (p *eventPrinter) printPlan(ev workflow.Event) {
	sources, _ := ev.Data["sources"].([]planner.SourcePlan)
	if len(sources) == 0 {
		return
	}
	fmt.Fprintln(p.out, ev.Message+":")
	for _, src := range sources {
		mode := "non-recursive"
		if src.Recursive {
			mode = "recursive"
		}
		fmt.Fprintln(p.out, renderStatusLine("Source", statusInfo, fmt.Sprintf("%s (%s, %s)", src.Dir, mode, src.Reason), p.colorize))
	}
}

func (p *eventPrinter) printIndented(v any) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(raw), "\n") {
		fmt.Fprintln(p.out, statusIndent+statusIndent+line)
	}
}
