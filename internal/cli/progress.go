package cli

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
)

// analysisProgress draws a spinner on stderr while a root is analysed.
// Non-interactive sessions get a no-op.
type analysisProgress struct {
	s    *spinner.Spinner
	root string
}

func (o *IO) startProgress(root string) *analysisProgress {
	p := &analysisProgress{root: root}

	if !o.Interactive() {
		return p
	}

	p.s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(o.errOut))
	p.s.Suffix = fmt.Sprintf(" Resolving dependencies of %s...", root)
	p.s.Start()

	return p
}

// update is passed to the analyzer as its progress callback.
func (p *analysisProgress) update(done, total int) {
	if p.s == nil {
		return
	}

	p.s.Lock()
	p.s.Suffix = fmt.Sprintf(" Checking dependencies of %s (%d/%d)", p.root, done, total)
	p.s.Unlock()
}

func (p *analysisProgress) stop() {
	if p.s != nil {
		p.s.Stop()
	}
}
