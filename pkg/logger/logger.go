package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

var (
	mu       sync.Mutex
	out      io.Writer = os.Stderr
	minLevel           = LevelInfo
	jsonMode           = false
)

// SetLevel sets the minimum emitted level. Accepts "debug", "info",
// "warn", "error"; anything else leaves the level unchanged.
func SetLevel(name string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		minLevel = LevelDebug
	case "info":
		minLevel = LevelInfo
	case "warn", "warning":
		minLevel = LevelWarn
	case "error":
		minLevel = LevelError
	}
}

func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w != nil {
		out = w
	}
}

func SetJSON(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	jsonMode = enabled
}

func DebugC(component, msg string) { emit(LevelDebug, component, msg, nil) }

func InfoC(component, msg string) { emit(LevelInfo, component, msg, nil) }

func WarnC(component, msg string) { emit(LevelWarn, component, msg, nil) }

func ErrorC(component, msg string) { emit(LevelError, component, msg, nil) }

func DebugCF(component, msg string, f map[string]any) { emit(LevelDebug, component, msg, f) }

func InfoCF(component, msg string, f map[string]any) { emit(LevelInfo, component, msg, f) }

func WarnCF(component, msg string, f map[string]any) { emit(LevelWarn, component, msg, f) }

func ErrorCF(component, msg string, f map[string]any) { emit(LevelError, component, msg, f) }

func emit(level Level, component, msg string, fields map[string]any) {
	mu.Lock()
	defer mu.Unlock()
	if level < minLevel {
		return
	}

	ts := time.Now().Format(time.RFC3339)
	if jsonMode {
		entry := map[string]any{
			"ts":        ts,
			"level":     levelNames[level],
			"component": component,
			"msg":       msg,
		}
		for k, v := range fields {
			entry[k] = v
		}
		if data, err := json.Marshal(entry); err == nil {
			fmt.Fprintln(out, string(data))
		}
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s [%s] %s", ts, levelNames[level], component, msg)
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}
	fmt.Fprintln(out, b.String())
}
