package components

import (
	"strings"
	"testing"
)

func TestSparkline(t *testing.T) {
	tests := []struct {
		name string
		rows []HistoryRow
		want string
	}{
		{"empty", nil, ""},
		{"flat", []HistoryRow{{BlockHeight: 5}, {BlockHeight: 5}}, "▅▅"},
		{"rising", []HistoryRow{{BlockHeight: 100}, {BlockHeight: 107}}, "▁█"},
		{"dip", []HistoryRow{{BlockHeight: 10}, {BlockHeight: 3}, {BlockHeight: 10}}, "█▁█"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sparkline(tt.rows); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHistoryComponent_ListsNewestFirst(t *testing.T) {
	h := NewHistoryComponent(2)
	h.Update([]HistoryRow{
		{Timestamp: "10:00:00", BlockHeight: 1},
		{Timestamp: "10:00:12", BlockHeight: 2},
		{Timestamp: "10:00:24", BlockHeight: 3},
	})

	view := h.View()
	if strings.Contains(view, "#1\n") || strings.HasSuffix(view, "#1") {
		t.Errorf("oldest row should be cut:\n%s", view)
	}
	if i3, i2 := strings.Index(view, "#3"), strings.Index(view, "#2"); i3 < 0 || i2 < 0 || i3 > i2 {
		t.Errorf("expected #3 before #2:\n%s", view)
	}
}

func TestBlockCard(t *testing.T) {
	if v := (BlockCard{}).View(); !strings.Contains(v, "Connecting...") || !strings.Contains(v, "---") {
		t.Errorf("unexpected idle card:\n%s", v)
	}
	if v := (BlockCard{Height: 42, Live: true}).View(); !strings.Contains(v, "WebSocket Live") || !strings.Contains(v, "#42") {
		t.Errorf("unexpected live card:\n%s", v)
	}
}

func TestCongestionBar_Clamps(t *testing.T) {
	for _, p := range []int{-5, 0, 55, 100, 140} {
		bar := CongestionBar(p, 10)
		if n := strings.Count(bar, "█") + strings.Count(bar, "░"); n != 10 {
			t.Errorf("percent %d: expected 10 cells, got %d", p, n)
		}
	}
}
