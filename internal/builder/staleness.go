package builder

import (
	"os"
	"time"
)

// classify compares an existing destination against the source modification
// time: absent destinations are missing, older ones outdated and the rest up
// to date. The returned size is nil unless the destination is a regular file.
func classify(dest string, source time.Time) (Status, *int64) {
	info, err := os.Stat(dest)
	if err != nil {
		return StatusMissing, nil
	}
	var size *int64
	if info.Mode().IsRegular() {
		size = sizeOf(info.Size())
	}
	if info.ModTime().Before(source) {
		return StatusOutdated, size
	}
	return StatusUpToDate, size
}
