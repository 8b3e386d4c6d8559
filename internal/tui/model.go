package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"squish/internal/processor"
	"squish/pkg/imgutil"
)

// Model renders batch progress from the processor's update channel.
type Model struct {
	updates     <-chan processor.ProgressUpdate
	cancel      func()
	control     *processor.Controller
	started     time.Time
	width       int
	total       int
	processed   int
	copied      int
	compressed  int
	failed      int
	skipped     int
	missed      int
	bytesBefore int64
	bytesAfter  int64
	current     string
	stopping    bool
	paused      bool
	skipAsked   bool
	quitting    bool
}

type doneMsg struct{}

type updateMsg processor.ProgressUpdate

// NewModel builds a progress model. cancel is called once when the user asks
// to stop; the run then finishes its current job and the channel closes.
// control, when set, backs the pause and skip keys.
func NewModel(updates <-chan processor.ProgressUpdate, total int, cancel func(), control *processor.Controller) Model {
	return Model{updates: updates, total: total, cancel: cancel, control: control, started: time.Now()}
}

func (m Model) Init() tea.Cmd {
	return listenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.total = msg.Total
		m.processed = msg.Index + 1
		m.current = msg.Outcome.RelPath
		m.skipAsked = false
		switch msg.Outcome.Status {
		case processor.StatusCopied:
			m.copied++
		case processor.StatusCompressed:
			m.compressed++
			if !msg.Outcome.TargetMet {
				m.missed++
			}
		case processor.StatusSkipped:
			m.skipped++
		default:
			m.failed++
		}
		if msg.Outcome.Succeeded() {
			m.bytesBefore += msg.Outcome.OriginalBytes
			m.bytesAfter += msg.Outcome.FinalBytes
		}
		return m, listenForUpdates(m.updates)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if !m.stopping && m.cancel != nil {
				m.cancel()
			}
			m.stopping = true
		case "p", " ":
			if m.control != nil && !m.stopping {
				m.paused = m.control.Toggle()
			}
		case "s":
			if m.control != nil && !m.stopping {
				m.control.Skip()
				m.skipAsked = true
			}
		}
		return m, nil
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = int(math.Min(60, float64(m.width-10)))
		if barWidth < 20 {
			barWidth = 20
		}
	}

	ratio := 0.0
	if m.total > 0 {
		ratio = float64(m.processed) / float64(m.total)
		if ratio > 1 {
			ratio = 1
		}
	}

	bar := renderBar(barWidth, ratio)
	elapsed := time.Since(m.started).Round(time.Millisecond)

	lines := []string{
		titleStyle.Render("squish"),
		labelStyle.Render(fmt.Sprintf("Files: %d/%d", m.processed, m.total)) +
			dimStyle.Render(fmt.Sprintf("  copied:%d compressed:%d failed:%d skipped:%d missed:%d", m.copied, m.compressed, m.failed, m.skipped, m.missed)),
		labelStyle.Render(fmt.Sprintf("Size: %s -> %s", imgutil.HumanBytes(m.bytesBefore), imgutil.HumanBytes(m.bytesAfter))),
		dimStyle.Render(fmt.Sprintf("Last: %s", m.current)),
		dimStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)),
		barStyle.Render(bar),
	}
	switch {
	case m.stopping:
		lines = append(lines, warnStyle.Render("Stopping after the current file..."))
	case m.paused:
		lines = append(lines, warnStyle.Render("Paused after the current file. Press p to resume."))
	case m.skipAsked:
		lines = append(lines, warnStyle.Render("Skipping the current file..."))
	}
	if m.control != nil && !m.stopping {
		lines = append(lines, dimStyle.Render("p pause/resume  s skip  q stop"))
	}

	return strings.Join(lines, "\n")
}

func listenForUpdates(updates <-chan processor.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(update)
	}
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	labelStyle = lipgloss.NewStyle().Foreground(ColorInk)
	barStyle   = lipgloss.NewStyle().Foreground(ColorSuccess)
	dimStyle   = lipgloss.NewStyle().Foreground(ColorDim)
	warnStyle  = lipgloss.NewStyle().Foreground(ColorWarn)
)
