package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// formatValue renders a console value, quoting anything with spaces,
// control characters, '=' or '"'.
func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return quoteIfNeeded(err.Error())
		}
		return quoteIfNeeded(fmt.Sprint(v.Any()))
	default:
		return quoteIfNeeded(v.String())
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

var levelLabels = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return levelLabels[3]
	case level >= slog.LevelWarn:
		return levelLabels[2]
	case level >= slog.LevelInfo:
		return levelLabels[1]
	default:
		return levelLabels[0]
	}
}
