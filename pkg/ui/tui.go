// Package ui provides the Bubble Tea dashboard.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	blockchainDomain "github.com/fd1az/ethersense/business/blockchain/domain"
	"github.com/fd1az/ethersense/business/telemetry/domain"
	"github.com/fd1az/ethersense/pkg/ui/components"
)

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status string // "pending", "connecting", "connected", "done", "failed"
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"
	PhaseStartup   Phase = "startup"
	PhaseDashboard Phase = "dashboard"
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

const historyListRows = 5

var startupOrder = []string{"config", "rpc", "websocket"}

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	keys KeyMap
	help help.Model

	// Components
	gas     *components.GasComponent
	history *components.HistoryComponent

	// Phase state
	phase        Phase
	welcomeStart time.Time

	// State
	ready      bool
	quitting   bool
	refreshing bool
	context    bool // show the assistant context line
	width      int
	height     int
	snapshot   domain.ChainSnapshot
	errors     []ErrorEntry // last 3
	logs       []string

	// Startup state
	startupSteps map[string]*StartupStep
	startupTime  time.Time
}

// New creates a new TUI model.
func New() Model {
	now := time.Now()
	return Model{
		keys:         DefaultKeyMap(),
		help:         help.New(),
		gas:          components.NewGasComponent(),
		history:      components.NewHistoryComponent(historyListRows),
		phase:        PhaseWelcome,
		welcomeStart: now,
		snapshot:     domain.NewChainSnapshot(),
		errors:       make([]ErrorEntry, 0, 3),
		logs:         make([]string, 0, 5),
		startupSteps: map[string]*StartupStep{
			"config":    {Name: "Loading configuration", Status: "pending"},
			"rpc":       {Name: "Querying JSON-RPC endpoints", Status: "pending"},
			"websocket": {Name: "Subscribing to new blocks", Status: "pending"},
		},
		startupTime: now,
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick every 100ms for smooth animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// refreshCmd runs OnRefresh off the update loop.
func refreshCmd() tea.Cmd {
	return func() tea.Msg {
		if OnRefresh != nil {
			OnRefresh()
		}
		return RefreshDoneMsg{}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		// During welcome phase, any other key skips to startup
		if m.phase == PhaseWelcome {
			return m.enterStartup(), tickCmd()
		}
		switch {
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Context):
			m.context = !m.context
		case key.Matches(msg, m.keys.Refresh):
			if m.refreshing {
				return m, nil
			}
			m.refreshing = true
			return m, refreshCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m = m.enterStartup()
		}
		return m, tickCmd()

	case SnapshotMsg:
		m.applySnapshot(msg.Snapshot)

	case RefreshDoneMsg:
		m.refreshing = false

	case ErrorMsg:
		m.logs = addLog(m.logs, "error", msg.Error.Error())
		m.errors = append(m.errors, ErrorEntry{
			Message:   msg.Error.Error(),
			Timestamp: time.Now(),
		})
		if len(m.errors) > 3 {
			m.errors = m.errors[len(m.errors)-3:]
		}

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}
	}

	return m, nil
}

// enterStartup leaves the welcome screen and triggers module startup.
func (m Model) enterStartup() Model {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	// Trigger callback directly (don't use Send() from within Update)
	if OnStartModules != nil {
		go OnStartModules()
	}
	return m
}

// applySnapshot converts the snapshot into component rows. No values are
// computed here beyond formatting.
func (m *Model) applySnapshot(s domain.ChainSnapshot) {
	m.snapshot = s

	trend := ""
	var tiers []components.GasTierRow
	if f := s.GasForecast; f != nil {
		trend = string(f.BaseFeeTrend)
		tiers = []components.GasTierRow{
			tierRow("Low", f.Low),
			tierRow("Medium", f.Medium),
			tierRow("High", f.High),
		}
	}
	m.gas.Update(s.GasDisplay(), trend, tiers)

	rows := make([]components.HistoryRow, 0, len(s.History))
	for _, p := range s.History {
		rows = append(rows, components.HistoryRow{Timestamp: p.Timestamp, BlockHeight: p.BlockHeight})
	}
	m.history.Update(rows)

	if s.IsLive() {
		if step := m.startupSteps["rpc"]; step.Status != "failed" {
			step.Status = "done"
		}
	}
	if len(s.History) > 0 {
		m.startupSteps["websocket"].Status = "connected"
	}
}

func tierRow(name string, t blockchainDomain.FeeTier) components.GasTierRow {
	return components.GasTierRow{
		Name:        name,
		MaxFee:      t.MaxFeeGwei.Round(0).String(),
		PriorityFee: t.PriorityFeeGwei.StringFixed(2),
		Wait:        fmt.Sprintf("%s-%s", t.MinWait.Round(time.Second), t.MaxWait.Round(time.Second)),
	}
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	logLine := fmt.Sprintf("[%s] %s: %s", timestamp, level, message)
	logs = append(logs, logLine)
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

func (m Model) startupComplete() bool {
	for _, step := range m.startupSteps {
		if step.Status != "connected" && step.Status != "done" {
			return false
		}
	}
	return true
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		if !m.snapshot.IsLive() && !m.startupComplete() {
			return m.renderStartupScreen()
		}
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" ⛓ ethersense "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	block := components.BlockCard{Height: m.snapshot.BlockHeight, Live: m.snapshot.IsLive()}.View()
	network := m.networkCard().View()

	if m.width > 100 {
		half := m.width/2 - 2
		top := lipgloss.JoinHorizontal(lipgloss.Top,
			BoxStyle.Width(half).Render(block),
			BoxStyle.Width(half).Render(m.gas.View()))
		bottom := lipgloss.JoinHorizontal(lipgloss.Top,
			BoxStyle.Width(half).Render(network),
			BoxStyle.Width(half).Render(m.history.View()))
		b.WriteString(lipgloss.JoinVertical(lipgloss.Left, top, bottom))
	} else {
		width := max(m.width-4, 40)
		for _, section := range []string{block, m.gas.View(), network, m.history.View()} {
			b.WriteString(BoxStyle.Width(width).Render(section))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n\n")

	if m.context {
		b.WriteString(MutedValue.Render("Assistant context: "))
		b.WriteString(m.snapshot.ChatContext())
		b.WriteString("\n\n")
	}

	if len(m.errors) > 0 {
		b.WriteString(ErrorStyle.Bold(true).Render("ERRORS"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(ErrorStyle.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(MutedValue.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.refreshing {
		b.WriteString(StatusReconnecting.Render("⟳ Refreshing"))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

func (m Model) networkCard() components.NetworkCard {
	f := m.snapshot.GasForecast
	if f == nil {
		return components.NetworkCard{}
	}
	return components.NetworkCard{
		Available:     true,
		Congestion:    f.CongestionPercent(),
		Level:         string(f.Level()),
		BaseTrend:     string(f.BaseFeeTrend),
		PriorityTrend: string(f.PriorityFeeTrend),
		Tip:           f.NetworkTip(),
	}
}

// renderWelcomeScreen renders the animated welcome screen.
func (m Model) renderWelcomeScreen() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary)

	mutedStyle := lipgloss.NewStyle().
		Foreground(ColorMuted)

	greenStyle := lipgloss.NewStyle().
		Foreground(ColorSecondary)

	// Animated dots based on time
	elapsed := time.Since(m.welcomeStart)
	dotCount := int(elapsed.Milliseconds()/300) % 4
	dots := strings.Repeat(".", dotCount)

	var sb strings.Builder

	sb.WriteString("\n\n\n\n")

	logo := `
   ███████╗████████╗██╗  ██╗███████╗██████╗ ███████╗███████╗███╗   ██╗███████╗███████╗
   ██╔════╝╚══██╔══╝██║  ██║██╔════╝██╔══██╗██╔════╝██╔════╝████╗  ██║██╔════╝██╔════╝
   █████╗     ██║   ███████║█████╗  ██████╔╝███████╗█████╗  ██╔██╗ ██║███████╗█████╗
   ██╔══╝     ██║   ██╔══██║██╔══╝  ██╔══██╗╚════██║██╔══╝  ██║╚██╗██║╚════██║██╔══╝
   ███████╗   ██║   ██║  ██║███████╗██║  ██║███████║███████╗██║ ╚████║███████║███████╗
   ╚══════╝   ╚═╝   ╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝╚══════╝╚══════╝╚═╝  ╚═══╝╚══════╝╚══════╝
`
	sb.WriteString(titleStyle.Render(logo))
	sb.WriteString("\n")

	sb.WriteString(mutedStyle.Render("                     L I V E   E T H E R E U M   T E L E M E T R Y"))
	sb.WriteString("\n\n\n")

	sb.WriteString(greenStyle.Render(fmt.Sprintf("                              Initializing%s", dots)))
	sb.WriteString("\n\n")

	sb.WriteString(mutedStyle.Render("                       Press any key to skip, or wait..."))
	sb.WriteString("\n")

	return sb.String()
}

// renderStartupScreen renders the loading/startup screen.
func (m Model) renderStartupScreen() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		MarginBottom(1)

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF"))

	mutedStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	successStyle := lipgloss.NewStyle().Foreground(ColorSecondary)
	connectingStyle := lipgloss.NewStyle().Foreground(ColorWarning)
	failedStyle := lipgloss.NewStyle().Foreground(ColorDanger)

	var sb strings.Builder

	sb.WriteString("\n\n")
	sb.WriteString(titleStyle.Render("  ⛓ ethersense"))
	sb.WriteString("\n\n")
	sb.WriteString(headerStyle.Render("  Starting up..."))
	sb.WriteString("\n\n")

	for _, k := range startupOrder {
		step, ok := m.startupSteps[k]
		if !ok {
			continue
		}

		var icon, statusText string
		var style lipgloss.Style

		switch step.Status {
		case "connected", "done":
			icon = "✓"
			statusText = "Ready"
			style = successStyle
		case "connecting":
			spinners := []string{"◐", "◓", "◑", "◒"}
			idx := int(time.Since(m.startupTime).Milliseconds()/200) % len(spinners)
			icon = spinners[idx]
			statusText = "Connecting..."
			style = connectingStyle
		case "failed":
			icon = "✗"
			statusText = "Failed"
			style = failedStyle
		default:
			icon = "○"
			statusText = "Pending"
			style = mutedStyle
		}

		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			style.Render(icon),
			mutedStyle.Render(step.Name),
			style.Render(statusText),
		))
	}

	sb.WriteString("\n")
	elapsed := time.Since(m.startupTime).Round(time.Second)
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("  Elapsed: %s", elapsed)))
	sb.WriteString("\n\n")

	sb.WriteString(mutedStyle.Render("  Waiting for first Ethereum block..."))
	sb.WriteString("\n")

	for _, line := range m.logs {
		sb.WriteString(mutedStyle.Render("  " + line))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	if m.snapshot.IsLive() {
		parts = append(parts, StatusConnected.Render("● WebSocket Live"))
	} else {
		parts = append(parts, StatusReconnecting.Render("○ Connecting..."))
	}

	if m.snapshot.BlockHeight > 0 {
		parts = append(parts, fmt.Sprintf("Block: #%d", m.snapshot.BlockHeight))
	}
	parts = append(parts, fmt.Sprintf("Gas: %s Gwei", m.snapshot.GasDisplay()))

	if !m.snapshot.UpdatedAt.IsZero() {
		ago := time.Since(m.snapshot.UpdatedAt).Round(time.Second)
		indicator := ""
		if ago < 2*time.Second {
			indicator = "▪"
		}
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago %s", ago, indicator)))
	}

	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules should start.
// This is set by main.go to signal when to begin loading modules.
var OnStartModules func()

// OnRefresh is called, off the update loop, when the user asks for a manual
// refresh. It is set by main.go.
var OnRefresh func()

// Run starts the Bubble Tea program.
func Run() error {
	Program = tea.NewProgram(New(), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
	// Call OnStartModules callback when StartModulesMsg is sent
	if _, ok := msg.(StartModulesMsg); ok && OnStartModules != nil {
		OnStartModules()
	}
}
