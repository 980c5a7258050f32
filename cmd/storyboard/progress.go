package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"

	"storyboard/internal/batch"
	"storyboard/internal/board"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// progressPrinter prints one line per row state change while a batch runs.
// It stays silent unless out is a terminal.
type progressPrinter struct {
	out      io.Writer
	enabled  bool
	colorize bool
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	terminal := isTerminal(out)
	return &progressPrinter{out: out, enabled: terminal, colorize: terminal}
}

func (p *progressPrinter) observe(ev board.Event, row *board.Row) {
	if !p.enabled {
		return
	}
	label := "Row #" + strconv.Itoa(row.ID)
	switch ev.Kind {
	case board.EventStarted:
		fmt.Fprintln(p.out, p.paint(ansiYellow, fmt.Sprintf("  %-10s %s", label, statusLabel(row.Status))))
	case board.EventFailed:
		fmt.Fprintln(p.out, p.paint(ansiRed, fmt.Sprintf("  %-10s failed: %s", label, ev.Text)))
	case board.EventFinished:
		fmt.Fprintln(p.out, p.paint(ansiGreen, fmt.Sprintf("  %-10s done", label)))
	}
}

func (p *progressPrinter) paint(color, line string) string {
	if !p.colorize {
		return line
	}
	return color + line + ansiReset
}

func printBatchSummary(out io.Writer, what string, result batch.Result) {
	if result.Selected == 0 {
		fmt.Fprintf(out, "No rows need %s\n", what)
		return
	}
	fmt.Fprintf(out, "%s: %d succeeded, %d failed", what, result.Succeeded, result.Failed)
	if result.Skipped > 0 {
		fmt.Fprintf(out, ", %d skipped", result.Skipped)
	}
	fmt.Fprintf(out, " (%d rows in %d groups)\n", result.Selected, result.Groups)
}

func statusLabel(status board.Status) string {
	switch status {
	case board.StatusGeneratingAsset:
		return "generating image"
	case board.StatusGeneratingPrompt:
		return "writing video prompt"
	default:
		return "idle"
	}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
