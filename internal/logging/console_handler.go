package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const consoleClock = "15:04:05"

// consoleHandler writes one human-readable line per record:
//
//	15:04:05 INFO [batch] Row #3 (image) – asset produced assets=1
//
// The component, row and operation fields move into the header; everything
// else trails as key=value pairs.
type consoleHandler struct {
	mu        *sync.Mutex
	out       io.Writer
	level     slog.Leveler
	source    bool
	preset    []field
	groupPath string
}

type field struct {
	key   string
	value slog.Value
}

func newConsoleHandler(w io.Writer, level slog.Leveler, source bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, out: w, level: level, source: source}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	fields := append([]field(nil), h.preset...)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendAttr(fields, h.groupPath, a)
		return true
	})
	head, rest := splitHeader(fields)

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		msg = "(no message)"
	}

	var b strings.Builder
	b.WriteString(ts.Local().Format(consoleClock))
	b.WriteByte(' ')
	b.WriteString(levelLabel(r.Level))
	if head.component != "" {
		fmt.Fprintf(&b, " [%s]", head.component)
	}
	if subject := head.subject(); subject != "" {
		b.WriteByte(' ')
		b.WriteString(subject)
	}
	b.WriteString(" – ")
	b.WriteString(msg)
	if h.source {
		if src := r.Source(); src != nil {
			fmt.Fprintf(&b, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	for _, f := range rest {
		b.WriteByte(' ')
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(formatValue(f.value))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.preset = append([]field(nil), h.preset...)
	for _, a := range attrs {
		next.preset = appendAttr(next.preset, h.groupPath, a)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groupPath = joinKey(h.groupPath, name)
	return &next
}

type header struct {
	component string
	rowID     string
	operation string
}

func (hd header) subject() string {
	switch {
	case hd.rowID != "" && hd.operation != "":
		return "Row #" + hd.rowID + " (" + hd.operation + ")"
	case hd.rowID != "":
		return "Row #" + hd.rowID
	default:
		return hd.operation
	}
}

// splitHeader pulls the header fields out (first occurrence wins) and
// collapses repeated trailing keys to their last value.
func splitHeader(fields []field) (header, []field) {
	var hd header
	pos := make(map[string]int, len(fields))
	rest := make([]field, 0, len(fields))
	for _, f := range fields {
		var slot *string
		switch f.key {
		case FieldComponent:
			slot = &hd.component
		case FieldRowID:
			slot = &hd.rowID
		case FieldOperation:
			slot = &hd.operation
		}
		if slot != nil {
			if *slot == "" {
				*slot = strings.TrimSpace(attrString(f.value))
			}
			continue
		}
		if i, ok := pos[f.key]; ok {
			rest[i] = f
			continue
		}
		pos[f.key] = len(rest)
		rest = append(rest, f)
	}
	return hd, rest
}

func appendAttr(dst []field, prefix string, a slog.Attr) []field {
	if a.Equal(slog.Attr{}) {
		return dst
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner = joinKey(prefix, a.Key)
		}
		for _, ga := range v.Group() {
			dst = appendAttr(dst, inner, ga)
		}
		return dst
	}
	if a.Key == "" {
		return dst
	}
	return append(dst, field{key: joinKey(prefix, a.Key), value: v})
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}
