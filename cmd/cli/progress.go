package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/dvloznov/finance-insights/internal/progress"
	"github.com/schollz/progressbar/v3"
)

// statementProgress shows one progress bar per statement being parsed. The
// workspace reports simulated percentages through Update.
type statementProgress struct {
	mu      sync.Mutex
	w       io.Writer
	enabled bool
	bar     *progressbar.ProgressBar
}

func newStatementProgress(w io.Writer, enabled bool) *statementProgress {
	return &statementProgress{w: w, enabled: enabled}
}

// Begin starts a fresh bar for the named statement.
func (p *statementProgress) Begin(name string) {
	if !p.enabled {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	w := p.w
	p.bar = progressbar.NewOptions(int(progress.Complete),
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan][bold]Parsing %s[reset]", name)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}

// Update moves the current bar to percentage v.
func (p *statementProgress) Update(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		return
	}
	_ = p.bar.Set(int(v))
}

// End completes the bar on success and leaves it where it stalled otherwise.
func (p *statementProgress) End(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		return
	}
	if ok {
		if !p.bar.IsFinished() {
			_ = p.bar.Finish()
		}
	} else {
		_ = p.bar.Exit()
		fmt.Fprintln(p.w)
	}
	p.bar = nil
}
