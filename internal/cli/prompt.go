package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
)

// confirm asks question and reports whether the answer was y or yes. On a
// terminal the line is read with liner so Ctrl-C aborts cleanly; otherwise
// a single line is read from in. EOF and Ctrl-C count as no. A canceled ctx
// returns ctx.Err().
func (o *IO) confirm(ctx context.Context, question string) (bool, error) {
	prompt := question + " [y/N]: "

	type result struct {
		answer string
		err    error
	}

	if o.reader == nil && o.in != nil {
		o.reader = bufio.NewReader(o.in)
	}

	// Buffered so the reader can finish after an interrupt without blocking.
	done := make(chan result, 1)

	go func() {
		var r result

		if isTerminal(o.in) && isTerminal(o.out) {
			r.answer, r.err = promptLiner(prompt)
		} else {
			r.answer, r.err = promptReader(o.Out(), o.reader, prompt)
		}

		done <- r
	}()

	var r result

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case r = <-done:
	}

	if r.err != nil {
		if errors.Is(r.err, io.EOF) || errors.Is(r.err, liner.ErrPromptAborted) {
			return false, nil
		}

		return false, fmt.Errorf("reading answer: %w", r.err)
	}

	switch strings.ToLower(strings.TrimSpace(r.answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func promptLiner(prompt string) (string, error) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)

	return line.Prompt(prompt)
}

// promptReader writes prompt to out and reads one line from reader. The
// reader is shared across prompts so answers for later roots are not lost to
// read-ahead.
func promptReader(out io.Writer, reader *bufio.Reader, prompt string) (string, error) {
	_, _ = io.WriteString(out, prompt)

	if reader == nil {
		return "", io.EOF
	}

	answer, err := reader.ReadString('\n')
	if err != nil && (answer == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}

	return answer, nil
}
