package zlog

import (
	"strconv"
	"strings"

	"go.uber.org/zap/buffer"
)

// lineBufferPool backs per-call scratch buffers for formatLine. Grounded
// on the teacher's formatter.bufferPool (a sync.Pool of *bytes.Buffer), but
// built on zap's maintained buffer.Pool rather than a hand-rolled pool.
var lineBufferPool = buffer.NewPool()

const timestampLayout = "2006-01-02 15:04:05.000"

// formatLine renders rec into the fixed-shape line described by spec.md
// §4.4:
//
//	[<ts>] [<LEVEL>] [<thread_id>] [<basename>:<line>] [<function>] #<sequence> <message>
//
// No trailing newline is included; sinks append the line terminator. When
// color is true the whole line is wrapped in the level's ANSI prefix and a
// reset suffix (console-only; file output is never colorized).
func formatLine(rec *Record, color bool) *buffer.Buffer {
	buf := lineBufferPool.Get()

	if color {
		buf.AppendString(rec.Level.ansiColor())
	}

	buf.AppendByte('[')
	buf.AppendString(rec.Timestamp.Format(timestampLayout))
	buf.AppendString("] [")
	buf.AppendString(rec.Level.String())
	buf.AppendString("] [")
	buf.AppendString(rec.ThreadID)
	buf.AppendString("] [")
	buf.AppendString(basename(rec.FilePath))
	if rec.LineNumber != 0 {
		buf.AppendByte(':')
		buf.AppendString(strconv.Itoa(rec.LineNumber))
	}
	buf.AppendByte(']')

	if rec.FunctionName != "" {
		buf.AppendString(" [")
		buf.AppendString(rec.FunctionName)
		buf.AppendByte(']')
	}

	if rec.Sequence != 0 {
		buf.AppendString(" #")
		buf.AppendString(strconv.FormatUint(rec.Sequence, 10))
	}

	buf.AppendByte(' ')
	buf.AppendString(rec.Message)

	if color {
		buf.AppendString(ansiReset)
	}

	return buf
}

// basename returns the portion of path after the last '/' or '\', matching
// the original source's use of whichever separator the path actually uses
// rather than only the host OS's filepath.Separator.
func basename(path string) string {
	if i := strings.LastIndexAny(path, "/\\"); i >= 0 {
		return path[i+1:]
	}
	return path
}
