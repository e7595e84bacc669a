// Package tui is a terminal dashboard for one hoststated observer session.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hoststate/hoststate/internal/observer"
	"github.com/hoststate/hoststate/internal/session"
)

// Source is the connection the dashboard reads from; *observer.Client in
// production.
type Source interface {
	URL() string
	Listen(ctx context.Context) tea.Cmd
	ReadLoop() tea.Cmd
	Close()
}

// Model is the root Bubble Tea model.
type Model struct {
	src    Source
	ctx    context.Context
	cancel context.CancelFunc
	keys   KeyMap

	width  int
	height int

	connected bool
	lastErr   error

	monitor   *session.MonitorUpdate
	apps      *session.AppsUpdate
	updatedAt time.Time
}

func New(src Source) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		src:    src,
		ctx:    ctx,
		cancel: cancel,
		keys:   DefaultKeyMap(),
	}
}

func (m Model) Init() tea.Cmd {
	return m.src.Listen(m.ctx)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case observer.ConnectedMsg:
		m.connected = true
		m.lastErr = nil
		return m, m.src.ReadLoop()

	case observer.DisconnectedMsg:
		m.connected = false
		m.lastErr = msg.Err
		return m, m.src.Listen(m.ctx)

	case observer.MonitorMsg:
		u := msg.Update
		m.monitor = &u
		m.updatedAt = time.Now()
		return m, m.src.ReadLoop()

	case observer.AppsMsg:
		u := msg.Update
		m.apps = &u
		m.updatedAt = time.Now()
		return m, m.src.ReadLoop()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		if m.src != nil {
			m.src.Close()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Reconnect):
		// The pending ReadLoop reports the drop and Update redials.
		if m.connected {
			m.src.Close()
		}
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	sections := []string{
		m.statusBar(),
		m.monitorPanel(),
		m.appsPanel(),
	}
	if !m.connected {
		sections = append(sections, m.disconnectNotice())
	}
	sections = append(sections, StyleDimmed.Render("  "+m.keys.helpLine()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) statusBar() string {
	var conn string
	if m.connected {
		conn = lipgloss.NewStyle().Foreground(ColorHealthy).Render("● Connected")
	} else {
		conn = lipgloss.NewStyle().Foreground(ColorDanger).Render("○ Connecting...")
	}

	sep := lipgloss.NewStyle().Foreground(ColorBorder).Render(" | ")
	content := conn + sep + m.sourceURL()
	if !m.updatedAt.IsZero() {
		content += sep + "updated " + m.updatedAt.Format("15:04:05")
	}

	return lipgloss.NewStyle().
		Width(max(m.width-2, 40)).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(ColorBorder).
		Render(content)
}

func (m Model) monitorPanel() string {
	value := StyleDimmed.Render("waiting for first update")
	if m.monitor != nil {
		count := m.monitor.Count
		value = lipgloss.NewStyle().
			Bold(true).
			Foreground(monitorColor(int(count))).
			Render(count.String())
	}
	return StyleBorder.Render(StyleHeader.Render("Monitors") + "  " + value)
}

func (m Model) appsPanel() string {
	lines := []string{StyleHeader.Render("Applications")}
	if m.apps == nil {
		lines = append(lines, StyleDimmed.Render("waiting for first update"))
		return StyleBorder.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	}

	lines = append(lines, "Browsers: "+renderNames(m.apps.ActiveBrowsers.Names(), StyleBrowser))
	flagged := m.apps.FlaggedApps.Names()
	label := "Flagged:  "
	if len(flagged) > 0 {
		label = StyleFlagged.Render("⚠ ") + "Flagged: "
	}
	lines = append(lines, label+renderNames(flagged, StyleFlagged))
	return StyleBorder.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) disconnectNotice() string {
	text := fmt.Sprintf("DISCONNECTED. Reconnecting to %s...", m.sourceURL())
	if m.lastErr != nil {
		text += "\n" + StyleDimmed.Render(m.lastErr.Error())
	}
	return lipgloss.NewStyle().
		Foreground(ColorWarning).
		Padding(0, 1).
		Render(text)
}

func (m Model) sourceURL() string {
	if m.src == nil {
		return "(no server)"
	}
	return m.src.URL()
}

func renderNames(names []string, style lipgloss.Style) string {
	if len(names) == 0 {
		return StyleDimmed.Render("none")
	}
	return style.Render(strings.Join(names, ", "))
}
