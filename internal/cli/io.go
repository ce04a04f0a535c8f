package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// IO handles command output. Report output goes to stdout and is dropped
// when quiet; errors and warnings always reach stderr.
type IO struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	quiet  bool

	reader *bufio.Reader
}

// NewIO creates a new IO instance.
func NewIO(in io.Reader, out, errOut io.Writer) *IO {
	return &IO{in: in, out: out, errOut: errOut}
}

// SetQuiet toggles suppression of report output.
func (o *IO) SetQuiet(quiet bool) {
	o.quiet = quiet
}

// Println writes to stdout unless quiet.
func (o *IO) Println(a ...any) {
	if o.quiet {
		return
	}

	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout unless quiet.
func (o *IO) Printf(format string, a ...any) {
	if o.quiet {
		return
	}

	_, _ = fmt.Fprintf(o.out, format, a...)
}

// ErrPrintln writes to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Warn prints "warning: ..." to stderr.
func (o *IO) Warn(format string, a ...any) {
	_, _ = fmt.Fprintf(o.errOut, "warning: "+format+"\n", a...)
}

// Out returns the stdout writer, or [io.Discard] when quiet.
func (o *IO) Out() io.Writer {
	if o.quiet {
		return io.Discard
	}

	return o.out
}

// Interactive reports whether progress decorations should be drawn: not
// quiet and stderr is a terminal.
func (o *IO) Interactive() bool {
	return !o.quiet && isTerminal(o.errOut)
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
