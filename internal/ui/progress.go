// Package ui renders live progress for multi-unit builds.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"kestrel/internal/driver"
)

const statusWidth = 10

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	summaryStyle = lipgloss.NewStyle().Faint(true)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
)

// Model is a Bubble Tea model fed by driver progress events. It quits when
// the event channel closes.
type Model struct {
	title   string
	events  <-chan driver.Event
	spinner spinner.Model
	bar     progress.Model
	units   []unitRow
	index   map[string]int
	width   int
	done    bool
}

type unitRow struct {
	path    string
	stage   driver.Stage
	status  driver.Status
	cached  bool
	elapsed time.Duration
}

type eventMsg driver.Event
type closedMsg struct{}

// NewModel builds a view over files, in the order given.
func NewModel(title string, files []string, events <-chan driver.Event) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = activeStyle

	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 60

	m := &Model{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		index:   make(map[string]int, len(files)),
		width:   80,
	}
	for _, f := range files {
		if _, dup := m.index[f]; dup {
			continue
		}
		m.index[f] = len(m.units)
		m.units = append(m.units, unitRow{path: f, stage: driver.StageLoad, status: driver.StatusQueued})
	}
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.apply(driver.Event(msg)), m.next())
	case closedMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = max(msg.Width-4, 10)
		}
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case progress.FrameMsg:
		next, cmd := m.bar.Update(msg)
		m.bar = next.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *Model) next() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *Model) apply(ev driver.Event) tea.Cmd {
	i, ok := m.index[ev.File]
	if !ok {
		return nil
	}
	row := &m.units[i]
	if row.status == driver.StatusDone || row.status == driver.StatusError {
		return nil
	}
	row.stage, row.status = ev.Stage, ev.Status
	row.cached = row.cached || ev.Cached
	row.elapsed += ev.Elapsed
	return m.bar.SetPercent(m.Fraction())
}

// Fraction is the share of work finished, counting partial progress through
// the stages of running units.
func (m *Model) Fraction() float64 {
	if len(m.units) == 0 {
		return 1
	}
	var sum float64
	for _, u := range m.units {
		sum += u.weight()
	}
	return sum / float64(len(m.units))
}

func (u unitRow) weight() float64 {
	switch u.status {
	case driver.StatusDone, driver.StatusError:
		return 1
	case driver.StatusQueued:
		return 0
	}
	switch u.stage {
	case driver.StageLoad:
		return 0.1
	case driver.StageVerify:
		return 0.3
	case driver.StageGenerate:
		return 0.6
	case driver.StageWrite:
		return 0.9
	}
	return 0
}

func (u unitRow) label() string {
	switch u.status {
	case driver.StatusWorking:
		return string(u.stage)
	case driver.StatusDone:
		if u.cached {
			return "cached"
		}
		return "done"
	default:
		return string(u.status)
	}
}

func (u unitRow) style() lipgloss.Style {
	switch u.status {
	case driver.StatusDone:
		return doneStyle
	case driver.StatusError:
		return errorStyle
	case driver.StatusWorking:
		return activeStyle
	default:
		return idleStyle
	}
}

func (m *Model) View() string {
	if len(m.units) == 0 {
		return ""
	}
	var b strings.Builder
	header := m.title
	if m.done {
		header = "finished " + header
	} else {
		header = m.spinner.View() + " " + header
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	nameWidth := max(m.width-statusWidth-4, 20)
	for _, u := range m.units {
		status := u.style().Render(fmt.Sprintf("%*s", statusWidth, u.label()))
		fmt.Fprintf(&b, "  %s %s\n", status, TruncatePath(u.path, nameWidth))
	}
	b.WriteString("\n")
	if m.done {
		b.WriteString(m.bar.ViewAs(1))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteString("\n")
	b.WriteString(summaryStyle.Render(m.summary()))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) summary() string {
	var finished, failed, cached int
	for _, u := range m.units {
		switch u.status {
		case driver.StatusDone:
			finished++
			if u.cached {
				cached++
			}
		case driver.StatusError:
			finished++
			failed++
		}
	}
	return fmt.Sprintf("%d/%d units, %d failed, %d cached", finished, len(m.units), failed, cached)
}

// TruncatePath fits path into width terminal cells, keeping its tail so the
// file name stays visible.
func TruncatePath(path string, width int) string {
	if width <= 0 || runewidth.StringWidth(path) <= width {
		return path
	}
	const ellipsis = "..."
	if width <= len(ellipsis) {
		return runewidth.Truncate(path, width, "")
	}
	budget := width - len(ellipsis)
	runes := []rune(path)
	start := len(runes)
	for start > 0 {
		w := runewidth.RuneWidth(runes[start-1])
		if w > budget {
			break
		}
		budget -= w
		start--
	}
	return ellipsis + string(runes[start:])
}
