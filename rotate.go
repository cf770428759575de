package zlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// rotatedName computes "<stem>_YYYYMMDD_HHMMSS<ext>" from path and the
// given instant, matching original_source's generateRotatedFileName and
// the round-trip grammar in spec.md §8: ^<stem>_\d{8}_\d{6}<ext>$.
func rotatedName(path string, at time.Time) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, fmt.Sprintf("%s_%s%s", stem, at.Format("20060102_150405"), ext))
}

// sameCalendarDay reports whether a and b fall on the same local year,
// month, and day-of-month.
func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// copyThenTruncate is the fallback used when os.Rename fails (cross-device
// or platform refusal): copy path's contents to backupPath, then truncate
// path to zero length in place. Matches original_source's rotateFile
// fallback exactly, including that every step's failure aborts rotation
// while leaving the original file intact.
func copyThenTruncate(path, backupPath string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open source for copy: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(backupPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create backup: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("copy to backup: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close backup: %w", err)
	}

	if err := os.Truncate(path, 0); err != nil {
		return fmt.Errorf("truncate source: %w", err)
	}
	return nil
}

// rotateFile performs the rotation procedure of spec.md §4.7 on an
// already-closed file at path: rename to the timestamped backup name,
// falling back to copy-then-truncate on rename failure. The caller is
// responsible for closing the active stream beforehand and reopening one
// afterward if needed (steps 1 and 5 of the procedure), since those steps
// depend on the file mode and are orchestrated by fileSinkManager.
func rotateFile(path string, at time.Time) error {
	backup := rotatedName(path, at)
	if err := os.Rename(path, backup); err == nil {
		return nil
	}
	return copyThenTruncate(path, backup)
}
