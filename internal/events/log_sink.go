package events

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
)

// LogSink writes events as key=value lines through a standard logger.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a LogSink. A nil logger writes through the default
// logger of the log package.
func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSink{logger: logger}
}

// Emit formats the event as `level=... event=... key=value ...` with keys in
// sorted order.
func (s *LogSink) Emit(_ context.Context, e Event) {
	var b strings.Builder
	fmt.Fprintf(&b, "level=%s event=%s", e.Level, e.Name)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, formatValue(e.Fields[k]))
	}
	s.logger.Print(b.String())
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		if val == "" || strings.ContainsAny(val, " \t\"=") {
			return fmt.Sprintf("%q", val)
		}
		return val
	case error:
		return fmt.Sprintf("%q", val.Error())
	default:
		return fmt.Sprintf("%v", val)
	}
}
