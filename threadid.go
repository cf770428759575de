package zlog

import (
	"bytes"
	"runtime"
)

// callerGoroutineID produces the opaque thread_id field of spec.md §3 for
// the calling goroutine. Go exposes no public goroutine-ID API (unlike the
// original source's std::this_thread::get_id()); no library in the
// retrieved examples provides a verified, importable equivalent, so this
// falls back to parsing the "goroutine N [...]" header that
// runtime.Stack(buf, false) always writes first, a well-known if
// unofficial, idiom. See DESIGN.md for why this is stdlib-only.
func callerGoroutineID() string {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return "?"
	}
	return string(fields[1])
}
