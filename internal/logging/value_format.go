package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Prompts and data URLs end up in log values; clip them on the console.
const maxConsoleValueLen = 160

// attrString renders v without quoting or clipping.
func attrString(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	}
	return v.String()
}

// formatValue renders v for a key=value pair: strings are clipped and quoted
// when they contain spaces, '=' or quotes.
func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindBool, slog.KindInt64, slog.KindUint64, slog.KindFloat64,
		slog.KindDuration, slog.KindTime:
		return attrString(v)
	}
	s := attrString(v)
	if runes := []rune(s); len(runes) > maxConsoleValueLen {
		s = string(runes[:maxConsoleValueLen]) + "…"
	}
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}
