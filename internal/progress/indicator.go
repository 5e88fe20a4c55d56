package progress

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Indicator renders a progress bar on a terminal, or periodic structured
// log lines when stdout is not a TTY (CI, piped output).
type Indicator struct {
	mu        sync.Mutex
	name      string
	total     int
	current   int
	startTime time.Time
	isTTY     bool
	width     int
}

// NewIndicator creates a progress indicator for an operation with a known
// number of steps.
func NewIndicator(name string, total int) *Indicator {
	fd := int(os.Stdout.Fd())
	width := 80
	isTTY := term.IsTerminal(fd)
	if isTTY {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			width = w
		}
	}

	return &Indicator{
		name:      name,
		total:     total,
		startTime: time.Now(),
		isTTY:     isTTY,
		width:     width,
	}
}

// Update advances the indicator to the given step.
func (p *Indicator) Update(current int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = current

	if p.isTTY {
		p.render()
		return
	}
	// Non-interactive: log every ~10%.
	if p.total > 0 && current%max(1, p.total/10) == 0 {
		log.Info().Str("op", p.name).Int("done", current).Int("total", p.total).Msg("progress")
	}
}

// Finish completes the bar and moves to a fresh line.
func (p *Indicator) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = p.total
	if p.isTTY {
		p.render()
		fmt.Println()
	}
	log.Info().Str("op", p.name).Int("total", p.total).
		Dur("elapsed", time.Since(p.startTime)).Msg("done")
}

func (p *Indicator) render() {
	pct := 0.0
	if p.total > 0 {
		pct = float64(p.current) / float64(p.total)
	}

	barWidth := p.width - len(p.name) - 20
	if barWidth < 10 {
		barWidth = 10
	}
	filled := int(pct * float64(barWidth))

	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)
	fmt.Printf("\r%s [%s] %5.1f%% (%d/%d)", p.name, bar, pct*100, p.current, p.total)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
