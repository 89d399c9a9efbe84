// Package progress renders download progress for the artifact fetcher
package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"golang.org/x/term"
)

// Unknown is the content length reported when the server doesn't declare one
const Unknown int64 = -1

const (
	barWidth       = 40
	redrawInterval = 100 * time.Millisecond
)

// Bar tracks the bytes written to it and renders them against the expected total.
//
// Three totals are told apart: a positive total draws a bar, Unknown only reports the
// byte count once finished, and zero reports an empty download.
type Bar struct {
	out     io.Writer
	name    string
	total   int64
	current int64

	isTTY      bool
	lastPct    float64
	lastUpdate time.Time
	model      progress.Model
}

// New creates a Bar labelled name. total should be the response's ContentLength
func New(out io.Writer, name string, total int64) *Bar {
	if out == nil {
		out = io.Discard
	}
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	if total < 0 {
		total = Unknown
	}
	return &Bar{
		out:     out,
		name:    name,
		total:   total,
		isTTY:   isTTY,
		lastPct: -1,
		model:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth)),
	}
}

// Write records len(p) downloaded bytes, so a Bar can sit behind an io.TeeReader
func (b *Bar) Write(p []byte) (int, error) {
	b.current += int64(len(p))
	b.update()
	return len(p), nil
}

// Current returns the number of bytes seen so far
func (b *Bar) Current() int64 {
	return b.current
}

// Percent returns the completed fraction in [0, 1], or false when it can't be known
func (b *Bar) Percent() (float64, bool) {
	if b.total <= 0 {
		return 0, false
	}
	pct := float64(b.current) / float64(b.total)
	if pct > 1 {
		pct = 1
	}
	return pct, true
}

func (b *Bar) update() {
	pct, known := b.Percent()
	if !known {
		return
	}
	if b.isTTY {
		now := time.Now()
		if now.Sub(b.lastUpdate) < redrawInterval {
			return
		}
		b.lastUpdate = now
		fmt.Fprintf(b.out, "\r%s\033[K", b.line(pct))
		return
	}
	// Plain output only reports every 10%
	threshold := float64(int(pct*10)) / 10
	if threshold > b.lastPct {
		b.lastPct = threshold
		fmt.Fprintf(b.out, "Downloading %s... %.0f%%\n", b.name, threshold*100)
	}
}

func (b *Bar) line(pct float64) string {
	return fmt.Sprintf("%s %s %s/%s", b.name, b.model.ViewAs(pct), FormatBytes(b.current), FormatBytes(b.total))
}

// Finish prints the final state of the download
func (b *Bar) Finish() {
	switch {
	case b.total == 0:
		fmt.Fprintf(b.out, "%s: the server reported an empty download\n", b.name)
	case b.total == Unknown:
		fmt.Fprintf(b.out, "Downloaded %s (%s)\n", b.name, FormatBytes(b.current))
	case b.isTTY:
		pct, _ := b.Percent()
		fmt.Fprintf(b.out, "\r%s\033[K\n", b.line(pct))
	case b.lastPct < 1:
		fmt.Fprintf(b.out, "Downloaded %s (%s)\n", b.name, FormatBytes(b.current))
	}
}

// FormatBytes renders n with a binary unit suffix
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
