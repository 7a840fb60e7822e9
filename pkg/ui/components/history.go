package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// HistoryRow is one block arrival.
type HistoryRow struct {
	Timestamp   string
	BlockHeight uint64
}

// HistoryComponent renders recent block arrivals as a sparkline and a list.
type HistoryComponent struct {
	rows     []HistoryRow
	listRows int
}

// NewHistoryComponent creates a history component listing at most listRows
// entries under the sparkline.
func NewHistoryComponent(listRows int) *HistoryComponent {
	return &HistoryComponent{listRows: listRows}
}

// Update replaces the rows, oldest first.
func (h *HistoryComponent) Update(rows []HistoryRow) {
	h.rows = rows
}

// View renders the history component.
func (h *HistoryComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	sparkStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("BLOCK HISTORY (%d)", len(h.rows))))
	b.WriteString("\n\n")

	if len(h.rows) == 0 {
		b.WriteString(dimStyle.Render("  Waiting for blocks..."))
		return b.String()
	}

	b.WriteString("  " + sparkStyle.Render(Sparkline(h.rows)))
	b.WriteString("\n\n")

	// Newest first.
	shown := 0
	for i := len(h.rows) - 1; i >= 0 && shown < h.listRows; i-- {
		r := h.rows[i]
		b.WriteString(fmt.Sprintf("  %s  #%d\n", dimStyle.Render(r.Timestamp), r.BlockHeight))
		shown++
	}
	return strings.TrimRight(b.String(), "\n")
}

// Sparkline scales block heights between the window's min and max.
func Sparkline(rows []HistoryRow) string {
	if len(rows) == 0 {
		return ""
	}

	lo, hi := rows[0].BlockHeight, rows[0].BlockHeight
	for _, r := range rows[1:] {
		lo = min(lo, r.BlockHeight)
		hi = max(hi, r.BlockHeight)
	}

	out := make([]rune, len(rows))
	for i, r := range rows {
		if hi == lo {
			out[i] = sparkLevels[len(sparkLevels)/2]
			continue
		}
		idx := int((r.BlockHeight - lo) * uint64(len(sparkLevels)-1) / (hi - lo))
		out[i] = sparkLevels[idx]
	}
	return string(out)
}
