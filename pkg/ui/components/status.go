package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BlockCard shows the latest block and the live indicator.
type BlockCard struct {
	Height uint64
	Live   bool
}

// View renders the block card.
func (c BlockCard) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	valueStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	liveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	waitStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)

	var b strings.Builder
	b.WriteString(headerStyle.Render("LATEST BLOCK"))
	b.WriteString("\n\n")

	height := "---"
	if c.Height > 0 {
		height = fmt.Sprintf("#%d", c.Height)
	}
	b.WriteString("  " + valueStyle.Render(height))
	b.WriteString("\n\n")

	if c.Live {
		b.WriteString("  " + liveStyle.Render("● WebSocket Live"))
	} else {
		b.WriteString("  " + waitStyle.Render("○ Connecting..."))
	}
	return b.String()
}
