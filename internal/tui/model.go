package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vecbench/internal/domain"
	"vecbench/internal/report"
)

// Model is the Bubble Tea model for browsing finished provider reports.
type Model struct {
	reports  []domain.ProviderReport
	viewport viewport.Model
	cursor   int
	ready    bool
	status   string
}

// New creates a report browser over the given reports.
func New(reports []domain.ProviderReport) Model {
	vp := viewport.New(0, 0)
	return Model{
		reports:  reports,
		viewport: vp,
		status:   fmt.Sprintf("%d providers. Up/down to switch, q to quit.", len(reports)),
	}
}

// Init has no startup command; all data is already loaded.
func (m Model) Init() tea.Cmd { return nil }

// Update handles key and window events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, fh := detailBoxStyle.GetFrameSize()
		reserved := 1 + 1 + 1 // header, spacer, status
		vh := msg.Height - lipgloss.Height(m.tableView()) - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = maxInt(3, vh-fh)
		m.viewport.SetContent(m.renderDetail())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		case "down", "j":
			if len(m.reports) > 0 {
				m.cursor = (m.cursor + 1) % len(m.reports)
				m.viewport.SetContent(m.renderDetail())
			}
			return m, nil
		case "up", "k":
			if len(m.reports) > 0 {
				m.cursor = (m.cursor - 1 + len(m.reports)) % len(m.reports)
				m.viewport.SetContent(m.renderDetail())
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the comparison table with the selected provider's detail.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("vecbench results")
	table := m.tableView()
	detail := detailBoxStyle.Render(m.viewport.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + table + "\n" + detail + "\n" + status
}

func (m Model) tableView() string {
	return report.RenderTable(m.reports)
}

func (m Model) renderDetail() string {
	if len(m.reports) == 0 {
		return "No reports."
	}
	title := fmt.Sprintf("Provider %d/%d", m.cursor+1, len(m.reports))
	return title + "\n\n" + report.RenderDetail(m.reports[m.cursor])
}

var (
	detailBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
