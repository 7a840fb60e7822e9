package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	blockchainDomain "github.com/fd1az/ethersense/business/blockchain/domain"
	"github.com/fd1az/ethersense/business/telemetry/domain"
)

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func dashboardModel() Model {
	m := New()
	m.phase = PhaseDashboard
	next, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 50})
	return next.(Model)
}

func TestModel_SnapshotRendersDashboard(t *testing.T) {
	m := dashboardModel()

	snap := domain.NewChainSnapshot()
	snap.BlockHeight = 19_000_123
	snap.ConnectionState = domain.StateLive
	snap.UpdatedAt = time.Now()
	snap.History = []domain.HistoryPoint{
		domain.NewHistoryPoint(time.Now(), 19_000_122),
		domain.NewHistoryPoint(time.Now(), 19_000_123),
	}
	snap.GasForecast = &blockchainDomain.GasForecast{
		Low:                  blockchainDomain.FeeTier{MaxFeeGwei: decimal.RequireFromString("20.2"), MaxWait: 30 * time.Second},
		Medium:               blockchainDomain.FeeTier{MaxFeeGwei: decimal.RequireFromString("25.5")},
		High:                 blockchainDomain.FeeTier{MaxFeeGwei: decimal.RequireFromString("31.9")},
		EstimatedBaseFeeGwei: decimal.RequireFromString("19.6"),
		NetworkCongestion:    0.92,
		BaseFeeTrend:         blockchainDomain.TrendUp,
		PriorityFeeTrend:     blockchainDomain.TrendStable,
	}

	next, _ := m.Update(SnapshotMsg{Snapshot: snap})
	view := next.(Model).View()

	for _, want := range []string{"#19000123", "WebSocket Live", "20 Gwei", "26 Gwei", "32 Gwei", "92%", "congestion is currently high"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_ConnectingWithoutSnapshot(t *testing.T) {
	view := dashboardModel().View()
	if !strings.Contains(view, "Connecting...") {
		t.Error("expected Connecting indicator")
	}
	if !strings.Contains(view, "No fee forecast available") {
		t.Error("expected empty forecast placeholder")
	}
}

func TestModel_RefreshKey(t *testing.T) {
	called := make(chan struct{}, 1)
	OnRefresh = func() { called <- struct{}{} }
	t.Cleanup(func() { OnRefresh = nil })

	m := dashboardModel()

	next, cmd := m.Update(runeKey('r'))
	m = next.(Model)
	if !m.refreshing || cmd == nil {
		t.Fatal("expected refresh to start")
	}

	// A second press while refreshing is ignored.
	if _, again := m.Update(runeKey('r')); again != nil {
		t.Error("expected no command while refreshing")
	}

	msg := cmd()
	if _, ok := msg.(RefreshDoneMsg); !ok {
		t.Fatalf("expected RefreshDoneMsg, got %T", msg)
	}
	select {
	case <-called:
	default:
		t.Error("OnRefresh not called")
	}

	next, _ = m.Update(msg)
	if next.(Model).refreshing {
		t.Error("expected refresh to finish")
	}
}

func TestModel_HelpAndQuit(t *testing.T) {
	m := dashboardModel()

	next, _ := m.Update(runeKey('?'))
	if !next.(Model).help.ShowAll {
		t.Error("expected full help")
	}

	next, cmd := next.(Model).Update(runeKey('q'))
	if !next.(Model).quitting || cmd == nil {
		t.Error("expected quit")
	}
}

func TestModel_ContextToggle(t *testing.T) {
	m := dashboardModel()
	next, _ := m.Update(SnapshotMsg{Snapshot: domain.ChainSnapshot{
		BlockHeight:     19_000_000,
		GasPriceGwei:    "21.37",
		ConnectionState: domain.StateLive,
	}})
	m = next.(Model)

	if strings.Contains(m.View(), "Assistant context") {
		t.Fatal("context line shown before toggle")
	}

	next, _ = m.Update(runeKey('c'))
	view := next.(Model).View()
	if !strings.Contains(view, "Latest block: 19000000, Current Gas: 21.37 Gwei.") {
		t.Errorf("expected chat context in view:\n%s", view)
	}
}

func TestModel_ErrorPanelKeepsLastThree(t *testing.T) {
	m := dashboardModel()
	for _, text := range []string{"one", "two", "three", "four"} {
		next, _ := m.Update(ErrorMsg{Error: errString(text)})
		m = next.(Model)
	}

	if len(m.errors) != 3 || m.errors[0].Message != "two" {
		t.Errorf("unexpected errors %+v", m.errors)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
