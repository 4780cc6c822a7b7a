package cli

import (
	"fmt"
	"io"
	"strings"
)

// progressLine renders one status line for headless runs. On a terminal the line is redrawn in
// place; otherwise a new line is written only when the text changes.
type progressLine struct {
	out     io.Writer
	inPlace bool

	title   string
	phase   string
	pct     float64
	hasPct  bool
	message string
	last    string
}

func newProgressLine(out io.Writer, inPlace bool, title string) *progressLine {
	return &progressLine{
		out:     out,
		inPlace: inPlace,
		title:   title,
		phase:   "starting",
	}
}

func (p *progressLine) SetTitle(title string) {
	p.title = title
}

func (p *progressLine) SetPhase(phase string) {
	p.phase = phase
	p.hasPct = false
	p.message = ""
	p.draw()
}

func (p *progressLine) SetProgress(pct float64, message string) {
	p.phase = "downloading"
	p.pct = pct
	p.hasPct = true
	p.message = message
	p.draw()
}

// Stop finishes the line with final. Empty final only terminates the in-place line.
func (p *progressLine) Stop(final string) {
	if p.out == nil {
		return
	}
	if p.inPlace {
		fmt.Fprintf(p.out, "\r\033[2K%s\n", final)
		return
	}
	if final != "" {
		fmt.Fprintln(p.out, final)
	}
}

func (p *progressLine) draw() {
	if p.out == nil {
		return
	}
	line := p.render()
	if line == p.last {
		return
	}
	p.last = line
	if p.inPlace {
		fmt.Fprintf(p.out, "\r\033[2K%s", line)
		return
	}
	fmt.Fprintln(p.out, line)
}

func (p *progressLine) render() string {
	parts := []string{p.phase}
	if p.hasPct {
		parts = append(parts, fmt.Sprintf("%5.1f%%", p.pct))
	}
	if m := strings.TrimSpace(p.message); m != "" {
		parts = append(parts, m)
	}
	if title := strings.TrimSpace(p.title); title != "" {
		parts = append(parts, "| "+truncateRunes(title, 52))
	}
	return strings.Join(parts, "  ")
}
