package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"

	"github.com/nao1215/sitescribe/internal/model"
)

// progress shows a spinner on an interactive terminal while sessions run.
// On anything else it is silent.
type progress struct {
	spinner *spinner.Spinner
}

// newProgress creates a progress indicator writing to w.
// It only animates when w is a terminal and enabled is true.
func newProgress(w io.Writer, enabled bool) *progress {
	if !enabled || !isTerminal(w) {
		return &progress{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	return &progress{spinner: s}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *progress) start(total int) {
	if p.spinner == nil {
		return
	}
	p.spinner.Suffix = fmt.Sprintf(" scraping 0/%d", total)
	p.spinner.Start()
}

// update is called by the scraper each time a session finishes.
func (p *progress) update(session *model.Session, done, total int) {
	if p.spinner == nil {
		return
	}
	p.spinner.Lock()
	p.spinner.Suffix = fmt.Sprintf(" scraping %d/%d (last: %s)", done, total, session.SeedURL)
	p.spinner.Unlock()
}

func (p *progress) stop() {
	if p.spinner == nil {
		return
	}
	p.spinner.Stop()
}
