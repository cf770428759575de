package zlog

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap/zapcore"
)

// consoleSink writes formatted lines to stdout/stderr. A single mutex
// serializes every write across both streams so lines from concurrent
// producers, and from the worker itself, never interleave; spec.md §4.5/§5
// require one process-wide mutex, not one per stream. Grounded on the
// teacher's consolehandler.lockedWriter (a writer wrapped with a *sync.Mutex
// pointing at the handler's shared mu), generalized here to two streams
// sharing the same lock.
type consoleSink struct {
	mu     sync.Mutex
	stdout zapcore.WriteSyncer
	stderr zapcore.WriteSyncer
}

func newConsoleSink() *consoleSink {
	return &consoleSink{
		stdout: zapcore.AddSync(wrapColorable(os.Stdout)),
		stderr: zapcore.AddSync(wrapColorable(os.Stderr)),
	}
}

// wrapColorable routes ANSI escapes through mattn/go-colorable so color
// output renders on legacy Windows consoles; on other platforms (and when
// the target isn't a terminal) it is a pass-through. isatty gates the
// decision the way joeycumines-go-utilpkg/prompt pairs the two libraries.
func wrapColorable(f *os.File) io.Writer {
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return colorable.NewColorable(f)
	}
	return f
}

// write dispatches a single record: stderr for ERROR/FATAL, stdout
// otherwise, each followed by a '\n' line terminator. Write failures are
// ignored per spec.md §4.5/§7.
func (c *consoleSink) write(rec *Record, color bool) {
	buf := formatLine(rec, color)
	buf.AppendByte('\n')

	c.mu.Lock()
	if rec.Level >= ErrorLevel {
		_, _ = c.stderr.Write(buf.Bytes())
	} else {
		_, _ = c.stdout.Write(buf.Bytes())
	}
	c.mu.Unlock()

	buf.Free()
}
