package dashconsole

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"troubledesk/internal/bootstrap/logging"
	domain "troubledesk/internal/domain/incident"
	"troubledesk/internal/ports"
	"troubledesk/internal/usecase/incident"
)

const (
	maxQueueRows    = 15
	maxGroupRows    = 5
	defaultInterval = 30 * time.Second
)

// Source is the slice of the incident service the console reads.
type Source interface {
	Dashboard(ctx context.Context, filter incident.DashboardFilter) (incident.DashboardSummary, error)
	ListIncidents(ctx context.Context, filter incident.ListFilter) (incident.ListResult, error)
}

type Options struct {
	OrganizationID      int64
	ShippingWarehouseID int64
	Months              int
	RefreshInterval     time.Duration
}

type dashboardModel struct {
	ctx             context.Context
	source          Source
	options         Options
	refreshInterval time.Duration

	summary    incident.DashboardSummary
	hasSummary bool

	// statusIndex selects from statusTabs; 0 is "delayed".
	statusIndex   int
	queue         []incident.ListItem
	queueTotal    int
	selectedIndex int
	status        string
}

var statusTabs = append([]domain.Status{""}, domain.AllStatuses...)

type summaryLoadedMsg struct {
	summary incident.DashboardSummary
	err     error
}

type queueLoadedMsg struct {
	statusIndex int
	result      incident.ListResult
	err         error
}

type tickMsg struct{}

func NewDashboardModel(ctx context.Context, source Source, options Options) tea.Model {
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &dashboardModel{
		ctx:             logging.WithAttrs(ctx, slog.String("component", "console.dashboard")),
		source:          source,
		options:         options,
		refreshInterval: interval,
		status:          "loading",
	}
}

func (m *dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.loadSummaryCmd(), m.loadQueueCmd(), m.tickCmd())
}

func (m *dashboardModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadSummaryCmd(), m.loadQueueCmd(), m.tickCmd())
	case summaryLoadedMsg:
		if msg.err != nil {
			m.status = "dashboard failed: " + msg.err.Error()
			logging.Warn(m.ctx, "dashboard load failed", slog.String("err", msg.err.Error()))
			return m, nil
		}
		m.summary = msg.summary
		m.hasSummary = true
		m.status = "updated " + msg.summary.GeneratedAt.Format("15:04:05")
		return m, nil
	case queueLoadedMsg:
		if msg.statusIndex != m.statusIndex {
			return m, nil
		}
		if msg.err != nil {
			m.status = "queue failed: " + msg.err.Error()
			return m, nil
		}
		m.queue = msg.result.Items
		m.queueTotal = msg.result.Total
		if m.selectedIndex >= len(m.queue) {
			m.selectedIndex = len(m.queue) - 1
		}
		if m.selectedIndex < 0 {
			m.selectedIndex = 0
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.status = "refreshing"
			return m, tea.Batch(m.loadSummaryCmd(), m.loadQueueCmd())
		case "tab", "right", "l":
			m.statusIndex = (m.statusIndex + 1) % len(statusTabs)
			m.selectedIndex = 0
			return m, m.loadQueueCmd()
		case "shift+tab", "left", "h":
			m.statusIndex = (m.statusIndex + len(statusTabs) - 1) % len(statusTabs)
			m.selectedIndex = 0
			return m, m.loadQueueCmd()
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.queue)-1 {
				m.selectedIndex++
			}
			return m, nil
		}
	}
	return m, nil
}

func (m *dashboardModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))
	delayedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Trouble Dashboard"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"organization=%s warehouse=%s refresh=%s",
		idOrAll(m.options.OrganizationID),
		idOrAll(m.options.ShippingWarehouseID),
		m.refreshInterval,
	)))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Summary"))
	builder.WriteString("\n")
	if !m.hasSummary {
		builder.WriteString(dimStyle.Render("- no data"))
		builder.WriteString("\n\n")
	} else {
		builder.WriteString(fmt.Sprintf("Total: %d  Delayed: %s\n", m.summary.Total, delayedStyle.Render(fmt.Sprint(m.summary.Delayed))))
		for _, status := range domain.AllStatuses {
			line := fmt.Sprintf("  %-24s %5d", status, m.summary.ByStatus[status])
			if status.Delayed() && m.summary.ByStatus[status] > 0 {
				line = delayedStyle.Render(line)
			}
			builder.WriteString(line)
			builder.WriteString("\n")
		}
		builder.WriteString("\n")

		builder.WriteString(sectionStyle.Render("Monthly"))
		builder.WriteString("\n")
		for _, month := range m.summary.Monthly {
			builder.WriteString(fmt.Sprintf(
				"  %s created=%-4d completed=%-4d delayed=%-4d %s\n",
				month.Month, month.Created, month.Completed, month.Delayed, bar(month.Created),
			))
		}
		builder.WriteString("\n")

		builder.WriteString(sectionStyle.Render("Top Categories"))
		builder.WriteString("\n")
		writeGroups(&builder, m.summary.ByCategory, "category", dimStyle)
		builder.WriteString(sectionStyle.Render("Top Warehouses"))
		builder.WriteString("\n")
		writeGroups(&builder, m.summary.ByWarehouse, "warehouse", dimStyle)
	}

	builder.WriteString(sectionStyle.Render(fmt.Sprintf("Queue [%s] %d", tabLabel(m.statusIndex), m.queueTotal)))
	builder.WriteString("\n")
	if len(m.queue) == 0 {
		builder.WriteString(dimStyle.Render("- no incidents"))
		builder.WriteString("\n")
	} else {
		for index, item := range m.queue {
			if index >= maxQueueRows {
				builder.WriteString(dimStyle.Render(fmt.Sprintf("  ... %d more", m.queueTotal-maxQueueRows)))
				builder.WriteString("\n")
				break
			}
			line := queueLine(item)
			if index == m.selectedIndex {
				builder.WriteString(selectedStyle.Render("> " + line))
			} else {
				builder.WriteString("  " + line)
			}
			builder.WriteString("\n")
		}
	}
	builder.WriteString("\n")

	builder.WriteString(sectionStyle.Render("Status"))
	builder.WriteString("\n")
	builder.WriteString("- " + m.status)
	builder.WriteString("\n\n")
	builder.WriteString(dimStyle.Render("Keys: tab/shift+tab switch queue  ↑/k ↓/j move  g refresh  q quit"))
	return builder.String()
}

func (m *dashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *dashboardModel) loadSummaryCmd() tea.Cmd {
	filter := incident.DashboardFilter{
		OrganizationID:      m.options.OrganizationID,
		ShippingWarehouseID: m.options.ShippingWarehouseID,
		Months:              m.options.Months,
	}
	return func() tea.Msg {
		summary, err := m.source.Dashboard(m.ctx, filter)
		return summaryLoadedMsg{summary: summary, err: err}
	}
}

func (m *dashboardModel) loadQueueCmd() tea.Cmd {
	statusIndex := m.statusIndex
	filter := queueFilter(m.options, statusIndex)
	return func() tea.Msg {
		result, err := m.source.ListIncidents(m.ctx, filter)
		return queueLoadedMsg{statusIndex: statusIndex, result: result, err: err}
	}
}

// queueFilter lists the delayed queue on tab 0 and a single status otherwise.
func queueFilter(options Options, statusIndex int) incident.ListFilter {
	filter := incident.ListFilter{
		OrganizationID:      options.OrganizationID,
		ShippingWarehouseID: options.ShippingWarehouseID,
		PageSize:            maxQueueRows + 1,
	}
	if statusIndex == 0 {
		filter.DelayedOnly = true
	} else {
		filter.Statuses = []domain.Status{statusTabs[statusIndex]}
	}
	return filter
}

func tabLabel(statusIndex int) string {
	if statusIndex == 0 {
		return "delayed"
	}
	return statusTabs[statusIndex].String()
}

func queueLine(item incident.ListItem) string {
	deadline := "-"
	if item.NextDeadline != nil {
		deadline = item.NextDeadline.Format("2006-01-02")
	}
	return fmt.Sprintf(
		"#%d %s created=%s due=%s wh=%d %s",
		item.Incident.ID,
		item.Status,
		item.Incident.CreationDate.Format("2006-01-02"),
		deadline,
		item.Incident.ShippingWarehouseID,
		truncate(item.Incident.Details, 40),
	)
}

func writeGroups(builder *strings.Builder, groups []ports.GroupCount, label string, dimStyle lipgloss.Style) {
	if len(groups) == 0 {
		builder.WriteString(dimStyle.Render("- none"))
		builder.WriteString("\n\n")
		return
	}
	sorted := append([]ports.GroupCount(nil), groups...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Count > sorted[j].Count })
	for index, group := range sorted {
		if index >= maxGroupRows {
			break
		}
		builder.WriteString(fmt.Sprintf("  %s %-6d %5d %s\n", label, group.Key, group.Count, bar(int(group.Count))))
	}
	builder.WriteString("\n")
}

func bar(n int) string {
	if n > 40 {
		n = 40
	}
	if n < 0 {
		n = 0
	}
	return strings.Repeat("█", n)
}

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func idOrAll(id int64) string {
	if id <= 0 {
		return "all"
	}
	return fmt.Sprint(id)
}
