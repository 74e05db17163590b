// Package tui is the SSH dashboard: a catalog browser, a result table,
// and the last ingestion report, one view per tab.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crossmarket/internal/query"
	"crossmarket/internal/service"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type QueryClient interface {
	Catalog(category string) []query.Definition
	Run(ctx context.Context, name string, params map[string]string) (*query.Result, error)
}

type ReportClient interface {
	LastReport() *service.RunReport
}

// Services bundles what the dashboard needs from the host process.
type Services struct {
	Queries  QueryClient
	Report   ReportClient
	Username string
}

type view int

const (
	viewCatalog view = iota
	viewResult
	viewReport
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	tabStyle    = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("241"))
	activeTab   = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("212"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type catalogItem struct {
	def query.Definition
}

func (i catalogItem) Title() string { return i.def.Name }
func (i catalogItem) Description() string {
	if len(i.def.Params) > 0 {
		return fmt.Sprintf("[%s] params: %s", i.def.Category, strings.Join(i.def.Params, ", "))
	}
	return "[" + i.def.Category + "] " + i.def.Title
}
func (i catalogItem) FilterValue() string { return i.def.Name }

type resultMsg struct {
	result *query.Result
	err    error
}

// AppModel is the root bubbletea model.
type AppModel struct {
	svc     Services
	view    view
	catalog list.Model
	result  table.Model
	last    *query.Result
	lastErr error
	running string
	width   int
	height  int
}

func NewAppModel(svc Services) *AppModel {
	items := []list.Item{}
	if svc.Queries != nil {
		for _, def := range svc.Queries.Catalog("") {
			items = append(items, catalogItem{def: def})
		}
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Query Catalog"
	l.SetShowStatusBar(false)

	return &AppModel{svc: svc, catalog: l}
}

// SetSize is called by the SSH middleware with the client's PTY size.
func (m *AppModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.catalog.SetSize(width, height-4)
	m.result.SetHeight(height - 6)
}

func (m *AppModel) Init() tea.Cmd { return nil }

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.view == viewCatalog && m.catalog.FilterState() == list.Filtering {
				break
			}
			return m, tea.Quit
		case "tab":
			m.view = (m.view + 1) % 3
			return m, nil
		case "enter":
			if m.view == viewCatalog {
				return m, m.runSelected()
			}
		}

	case resultMsg:
		m.running = ""
		m.lastErr = msg.err
		if msg.err == nil {
			m.last = msg.result
			m.result = buildResultTable(msg.result, m.height-6)
			m.view = viewResult
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.view {
	case viewCatalog:
		m.catalog, cmd = m.catalog.Update(msg)
	case viewResult:
		m.result, cmd = m.result.Update(msg)
	}
	return m, cmd
}

// runSelected executes the highlighted query in the background. Queries
// that need parameters are only runnable over the HTTP API.
func (m *AppModel) runSelected() tea.Cmd {
	item, ok := m.catalog.SelectedItem().(catalogItem)
	if !ok {
		return nil
	}
	if len(item.def.Params) > 0 {
		m.lastErr = fmt.Errorf("%s needs parameters (%s), use the HTTP API",
			item.def.Name, strings.Join(item.def.Params, ", "))
		return nil
	}

	m.lastErr = nil
	m.running = item.def.Name
	queries := m.svc.Queries
	name := item.def.Name
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		result, err := queries.Run(ctx, name, nil)
		return resultMsg{result: result, err: err}
	}
}

func (m *AppModel) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")

	switch m.view {
	case viewCatalog:
		b.WriteString(m.catalog.View())
	case viewResult:
		b.WriteString(m.resultView())
	case viewReport:
		b.WriteString(m.reportView())
	}

	b.WriteString("\n")
	b.WriteString(m.statusLine())
	return b.String()
}

func (m *AppModel) header() string {
	tabs := []string{"Catalog", "Result", "Report"}
	rendered := make([]string, len(tabs))
	for i, name := range tabs {
		if view(i) == m.view {
			rendered[i] = activeTab.Render(name)
		} else {
			rendered[i] = tabStyle.Render(name)
		}
	}
	title := "crossmarket"
	if m.svc.Username != "" {
		title += " · " + m.svc.Username
	}
	return titleStyle.Render(title) + "  " + strings.Join(rendered, " ")
}

func (m *AppModel) resultView() string {
	if m.last == nil {
		return statusStyle.Render("No query has been run yet. Pick one from the catalog.")
	}
	header := fmt.Sprintf("%s (%d rows", m.last.Name, len(m.last.Rows))
	if m.last.Truncated {
		header += ", truncated"
	}
	header += ")"
	return header + "\n" + m.result.View()
}

func (m *AppModel) reportView() string {
	if m.svc.Report == nil {
		return statusStyle.Render("No pipeline attached to this session.")
	}
	report := m.svc.Report.LastReport()
	return renderReport(report)
}

func (m *AppModel) statusLine() string {
	if m.lastErr != nil {
		return errStyle.Render(m.lastErr.Error())
	}
	if m.running != "" {
		return statusStyle.Render("running " + m.running + "...")
	}
	return statusStyle.Render("tab: switch view · enter: run query · q: quit")
}

// buildResultTable converts a query result into a bubbles table.
func buildResultTable(result *query.Result, height int) table.Model {
	columns := make([]table.Column, len(result.Columns))
	for i, name := range result.Columns {
		width := len(name) + 2
		if width < 14 {
			width = 14
		}
		columns[i] = table.Column{Title: name, Width: width}
	}

	rows := make([]table.Row, len(result.Rows))
	for i, row := range result.Rows {
		cells := make(table.Row, len(row))
		for j, v := range row {
			cells[j] = formatCell(v)
		}
		rows[i] = cells
	}

	if height < 3 {
		height = 10
	}
	t := table.New(table.WithColumns(columns), table.WithRows(rows), table.WithHeight(height))
	t.Focus()
	return t
}

func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case float64:
		return fmt.Sprintf("%.2f", t)
	case float32:
		return fmt.Sprintf("%.2f", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// renderReport formats the last run report as fixed-width text.
func renderReport(report *service.RunReport) string {
	if report == nil {
		return "No pipeline run has completed yet."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Last run: %s (took %s)\n\n",
		report.StartedAt.Format(time.RFC3339),
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(&b, "%-16s %-8s %8s %8s %8s\n", "table", "status", "rows", "in", "dropped")
	for _, t := range report.Tables {
		fmt.Fprintf(&b, "%-16s %-8s %8d %8d %8d\n",
			t.Table, t.Status, t.Rows, t.Stats.In, t.Stats.Dropped)
		if t.Error != "" {
			fmt.Fprintf(&b, "  %s\n", t.Error)
		}
	}
	if len(report.SourceErrors) > 0 {
		b.WriteString("\nSource errors:\n")
		for _, e := range report.SourceErrors {
			fmt.Fprintf(&b, "  %s\n", e)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
