package store

import (
	"bufio"
	"strings"
)

// ParseUnitVariables parses a persisted unit-variable record in the
// engine's documented key=value format: one "key=value" pair per line,
// blank lines and lines starting with "#" ignored. This replaces the
// reference implementation's eval-based deserialization (spec.md §9's
// Design Notes) with a strict parse; malformed lines (no "=") are
// skipped rather than executed or treated as fatal.
func ParseUnitVariables(data []byte) map[string]string {
	out := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return out
}

// FormatUnitVariables serializes a replacement-context-shaped map back to
// the key=value record format, preserving the given key order.
func FormatUnitVariables(keys []string, values map[string]string) []byte {
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(values[k])
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
