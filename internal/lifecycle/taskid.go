package lifecycle

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// NewTaskID builds a human-readable task code from the creation time and two
// independent random components, e.g. TSK-240101093000123-1A2B-3C4D.
// Uniqueness is finally enforced by the repository, which rejects a taken
// code so the caller can draw again.
func NewTaskID(now time.Time) string {
	ms := now.Nanosecond() / int(time.Millisecond)
	return fmt.Sprintf("TSK-%s%03d-%04X-%04X", now.UTC().Format("060102150405"), ms, random16(), random16())
}

func random16() uint16 {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand does not fail on supported platforms; fall back to the clock
		return uint16(time.Now().UnixNano())
	}
	return binary.BigEndian.Uint16(b[:])
}
