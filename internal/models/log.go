package models

import (
	"strings"
	"time"
)

// LogTimestampLayout prefixes every remark and difficulty entry.
const LogTimestampLayout = "2006-01-02 15:04:05"

// AppendLog appends a timestamped entry to an append-only text log.
// Blank entries leave the log unchanged.
func AppendLog(log string, at time.Time, entry string) string {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return log
	}
	line := "[" + at.Format(LogTimestampLayout) + "] " + entry
	if log == "" {
		return line
	}
	return log + "\n" + line
}

// LogEntries splits a log into its entries, oldest first.
func LogEntries(log string) []string {
	if strings.TrimSpace(log) == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(log, "\n") {
		if strings.HasPrefix(line, "[") || len(out) == 0 {
			out = append(out, line)
			continue
		}
		// continuation of a multi-line entry
		out[len(out)-1] += "\n" + line
	}
	return out
}
