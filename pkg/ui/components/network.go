package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const congestionBarWidth = 20

// NetworkCard shows congestion, fee trends and the network tip.
type NetworkCard struct {
	Available     bool
	Congestion    int    // percent
	Level         string // Low, Normal, High
	BaseTrend     string
	PriorityTrend string
	Tip           string
}

// View renders the network card.
func (n NetworkCard) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	tipStyle := lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#9CA3AF"))
	alertStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))

	var b strings.Builder
	b.WriteString(headerStyle.Render("NETWORK"))
	b.WriteString("\n\n")

	if !n.Available {
		b.WriteString("  Congestion: " + dimStyle.Render("---"))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  Congestion: %s %d%% %s\n",
		CongestionBar(n.Congestion, congestionBarWidth), n.Congestion, dimStyle.Render("("+n.Level+")")))
	b.WriteString(fmt.Sprintf("  Base fee: %s   Priority fee: %s\n\n",
		TrendBadge(n.BaseTrend), TrendBadge(n.PriorityTrend)))

	if n.Level == "High" {
		b.WriteString("  " + alertStyle.Render("Network Tip: ") + tipStyle.Render(n.Tip))
	} else {
		b.WriteString("  " + dimStyle.Render("Network Tip: ") + tipStyle.Render(n.Tip))
	}
	return b.String()
}

// CongestionBar renders percent as a filled bar of width cells.
func CongestionBar(percent, width int) string {
	percent = max(0, min(100, percent))
	filled := percent * width / 100

	color := lipgloss.Color("#10B981")
	switch {
	case percent > 80:
		color = lipgloss.Color("#EF4444")
	case percent >= 40:
		color = lipgloss.Color("#F59E0B")
	}

	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(lipgloss.Color("#374151")).Render(strings.Repeat("░", width-filled))
}
