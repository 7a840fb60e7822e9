// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// GasTierRow is one fee tier, already formatted for display.
type GasTierRow struct {
	Name        string // Low, Medium, High
	MaxFee      string // whole Gwei
	PriorityFee string
	Wait        string // e.g. "15s-30s"
}

// GasComponent renders the headline gas figure and the fee tiers.
type GasComponent struct {
	headline string
	trend    string
	tiers    []GasTierRow
}

// NewGasComponent creates a new gas component.
func NewGasComponent() *GasComponent {
	return &GasComponent{headline: "0"}
}

// Update replaces the displayed values. tiers may be empty when no forecast
// is available.
func (g *GasComponent) Update(headline, trend string, tiers []GasTierRow) {
	g.headline = headline
	g.trend = trend
	g.tiers = tiers
}

// View renders the gas component.
func (g *GasComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	valueStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	tierStyles := map[string]lipgloss.Style{
		"Low":    lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")),
		"Medium": lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		"High":   lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")),
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("GAS"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  %s Gwei", valueStyle.Render(g.headline)))
	if g.trend != "" {
		b.WriteString("  " + TrendBadge(g.trend))
	}
	b.WriteString("\n\n")

	if len(g.tiers) == 0 {
		b.WriteString(dimStyle.Render("  No fee forecast available"))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  %-8s  %10s  %10s  %12s\n", "Tier", "Max fee", "Priority", "Wait"))
	b.WriteString(dimStyle.Render("  "+strings.Repeat("─", 46)) + "\n")
	for _, t := range g.tiers {
		style, ok := tierStyles[t.Name]
		if !ok {
			style = dimStyle
		}
		b.WriteString(fmt.Sprintf("  %s  %10s  %10s  %12s\n",
			style.Render(fmt.Sprintf("%-8s", t.Name)),
			t.MaxFee+" Gwei",
			t.PriorityFee,
			dimStyle.Render(t.Wait),
		))
	}
	return strings.TrimRight(b.String(), "\n")
}

// TrendBadge renders an up/down/stable trend marker.
func TrendBadge(trend string) string {
	switch trend {
	case "up":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Render("▲ up")
	case "down":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Render("▼ down")
	case "stable":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Render("● stable")
	}
	return ""
}
