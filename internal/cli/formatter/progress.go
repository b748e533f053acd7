package formatter

import (
	"fmt"
	"strings"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
)

// RenderMatchBar renders the share of matched products as a bar such as
// [██████░░] 75%. Green from 90%, yellow from 50%, red below.
func RenderMatchBar(matched, total, width int) string {
	if width < 2 {
		width = 2
	}
	pct := 1.0
	if total > 0 {
		pct = float64(matched) / float64(total)
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}

	filled := int(pct * float64(width))
	bar := strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, width-filled)

	style := StyleGreen
	switch {
	case pct < 0.5:
		style = StyleRed
	case pct < 0.9:
		style = StyleYellow
	}
	return fmt.Sprintf("[%s] %3.0f%%", style.Render(bar), pct*100)
}
