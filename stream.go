package zlog

import "strings"

// Stream is the caller-scoped accumulator described in spec.md §6/§9: it
// buffers formatted fragments and submits exactly one Record when Close
// runs. Go has no destructors, so callers are expected to `defer
// stream.Close()` immediately after obtaining one, the idiomatic
// replacement for the original's submit-on-scope-exit behavior. Every
// method is nil-receiver-safe, so a rejected level (ShouldLog false) can
// return a nil *Stream and every subsequent call on it is simply a no-op,
// reproducing the short-circuiting the omitted macro front-end relied on
// without ever formatting an argument.
type Stream struct {
	svc          *Service
	level        Level
	filePath     string
	functionName string
	lineNumber   int
	buf          strings.Builder
	submitted    bool
}

// NewStream begins a scoped accumulator for level at the given call site.
// It returns nil when ShouldLog(level) is false, so the entire call chain
// below becomes a no-op without ever touching the queue.
func (s *Service) NewStream(level Level, filePath, functionName string, lineNumber int) *Stream {
	if !s.ShouldLog(level) {
		return nil
	}
	return &Stream{svc: s, level: level, filePath: filePath, functionName: functionName, lineNumber: lineNumber}
}

// WriteString appends str to the accumulator and returns the receiver for
// chaining.
func (st *Stream) WriteString(str string) *Stream {
	if st == nil {
		return st
	}
	st.buf.WriteString(str)
	return st
}

// Close submits exactly one Record built from the accumulated text, then
// disarms the Stream: a second Close (or a Close after the instance has
// already been "moved from" by some other path through the code) is a
// no-op, matching the move-only contract of spec.md §9.
func (st *Stream) Close() {
	if st == nil || st.submitted {
		return
	}
	st.submitted = true
	st.svc.Submit(st.level, st.buf.String(), st.filePath, st.functionName, st.lineNumber)
}
