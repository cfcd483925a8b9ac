package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"barrel/internal/driver"
)

// maxRows caps the directory list; larger trees show only the latest rows.
const maxRows = 12

type progressModel struct {
	title   string
	root    string
	events  <-chan driver.Event
	spinner spinner.Model
	prog    progress.Model
	items   []dirItem
	index   map[string]int
	recent  []int
	settled int
	width   int
	done    bool
}

type dirItem struct {
	path   string
	status driver.Status
}

type eventMsg driver.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders sync progress for
// dirs, which are absolute paths below root in sync order.
func NewProgressModel(title, root string, dirs []string, events <-chan driver.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]dirItem, 0, len(dirs))
	index := make(map[string]int, len(dirs))
	for i, dir := range dirs {
		items = append(items, dirItem{path: dir, status: driver.StatusPending})
		index[dir] = i
	}
	return &progressModel{
		title:   title,
		root:    root,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(driver.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		model, cmd := m.prog.Update(msg)
		m.prog = model.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := fmt.Sprintf("%s (%d/%d)", m.title, m.settled, len(m.items))
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 10
	nameWidth := max(m.width-statusWidth-4, 20)
	for _, idx := range m.visibleRows() {
		item := m.items[idx]
		status := styleStatus(item.status).Render(fmt.Sprintf("%10s", item.status))
		fmt.Fprintf(&b, "  %s %s\n", status, truncate(m.displayPath(item.path), nameWidth))
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) visibleRows() []int {
	if len(m.items) <= maxRows {
		rows := make([]int, len(m.items))
		for i := range rows {
			rows[i] = i
		}
		return rows
	}
	if len(m.recent) <= maxRows {
		return m.recent
	}
	return m.recent[len(m.recent)-maxRows:]
}

func (m *progressModel) displayPath(dir string) string {
	rel, err := filepath.Rel(m.root, dir)
	if err != nil || rel == "." {
		return filepath.Base(dir) + "/"
	}
	return filepath.ToSlash(rel) + "/"
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev driver.Event) tea.Cmd {
	idx, ok := m.index[ev.Dir]
	if !ok {
		return nil
	}
	wasSettled := settled(m.items[idx].status)
	m.items[idx].status = ev.Status
	if ev.Status == driver.StatusWorking {
		m.recent = append(m.recent, idx)
	}
	if !wasSettled && settled(ev.Status) {
		m.settled++
	}
	return m.prog.SetPercent(float64(m.settled) / float64(len(m.items)))
}

func settled(status driver.Status) bool {
	switch status {
	case driver.StatusWritten, driver.StatusSkipped, driver.StatusError:
		return true
	default:
		return false
	}
}

func styleStatus(status driver.Status) lipgloss.Style {
	switch status {
	case driver.StatusWritten:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case driver.StatusError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case driver.StatusWorking, driver.StatusPlanned:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
