package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	orchestration "github.com/koscakluka/ema-duplex/core"
	"github.com/koscakluka/ema-duplex/core/events"
)

const maxTranscriptLines = 200

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	partialStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	levelStyles = map[events.Level]lipgloss.Style{
		events.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		events.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		events.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		events.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
)

type eventMsg struct{ event events.Event }

type clipSavedMsg struct {
	path string
	err  error
}

type line struct {
	role events.Role
	text string
}

type model struct {
	orchestrator *orchestration.Orchestrator
	clipDir      string

	spinner spinner.Model
	input   textinput.Model

	width      int
	height     int
	recording  bool
	busy       bool
	status     events.StatusChanged
	partial    string
	foreground string
	transcript []line
}

func newModel(orchestrator *orchestration.Orchestrator, clipDir string) model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	input := textinput.New()
	input.Placeholder = "type a question, tab to focus"
	input.CharLimit = 500

	return model{
		orchestrator: orchestrator,
		clipDir:      clipDir,
		spinner:      s,
		input:        input,
		width:        80,
		foreground:   "none",
		status:       events.NewStatusChanged(events.StatusReady, events.LevelInfo, "Starting..."),
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case tea.KeyMsg:
		if m.input.Focused() {
			return m.updateInput(msg)
		}
		return m.handleKey(msg)

	case eventMsg:
		m.handleEvent(msg.event)
		return m, nil

	case clipSavedMsg:
		if msg.err != nil {
			m.status = events.NewStatusChanged(events.StatusError, events.LevelError, fmt.Sprintf("Failed to save clip: %v", msg.err))
		} else {
			m.status = events.NewStatusChanged(events.StatusReady, events.LevelSuccess, "Saved clip to "+msg.path)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		if m.recording {
			m.recording = false
			m.report(m.orchestrator.StopCapture())
		} else {
			m.recording = true
			m.report(m.orchestrator.StartCapture(context.Background()))
		}
	case "s":
		m.report(m.orchestrator.StopPlayback())
	case "p":
		m.report(m.orchestrator.TogglePreview())
	case "r":
		m.report(m.orchestrator.ResumeSpeech())
	case "w":
		return m, m.saveClip()
	case "tab", "enter":
		return m, m.input.Focus()
	}
	return m, nil
}

func (m model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc, tea.KeyTab:
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		m.input.Blur()
		if text != "" {
			m.report(m.orchestrator.SubmitText(text))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) report(err error) {
	if err != nil {
		m.status = events.NewStatusChanged(events.StatusError, events.LevelError, err.Error())
	}
}

func (m *model) handleEvent(event events.Event) {
	switch e := event.(type) {
	case events.StatusChanged:
		m.status = e
		switch e.Status {
		case events.StatusPartial:
			m.partial = e.Message
		case events.StatusListening:
			m.recording = true
			m.partial = ""
		case events.StatusReady, events.StatusPermissionDenied, events.StatusDeviceError, events.StatusConnectionError:
			m.recording = false
			m.partial = ""
		}
		m.busy = e.Status == events.StatusProcessing

	case events.MessageCommitted:
		if e.Role == events.RoleUser {
			m.partial = ""
		}
		m.transcript = append(m.transcript, line{role: e.Role, text: e.Text})
		if len(m.transcript) > maxTranscriptLines {
			m.transcript = m.transcript[len(m.transcript)-maxTranscriptLines:]
		}

	case events.ForegroundChanged:
		m.foreground = e.Current
	}
}

func (m model) saveClip() tea.Cmd {
	clip := m.orchestrator.LastClip()
	dir := m.clipDir
	return func() tea.Msg {
		if clip == nil {
			return clipSavedMsg{err: fmt.Errorf("no clip yet")}
		}
		path := filepath.Join(dir, fmt.Sprintf("ema-%s.wav", time.Now().Format("20060102-150405")))
		if err := os.WriteFile(path, clip.WAV, 0o644); err != nil {
			return clipSavedMsg{err: err}
		}
		return clipSavedMsg{path: path}
	}
}

func (m model) View() string {
	var b strings.Builder
	wrap := max(m.width-2, 20)

	b.WriteString(titleStyle.Render("ema voice"))
	b.WriteString(helpStyle.Render(fmt.Sprintf("  session %s  audio: %s", m.orchestrator.SessionID(), m.foreground)))
	b.WriteString("\n\n")

	lines := make([]string, 0, len(m.transcript)+1)
	for _, l := range m.transcript {
		lines = append(lines, renderLine(l, wrap))
	}
	if m.partial != "" {
		lines = append(lines, partialStyle.Render(wordwrap.String("… "+m.partial, wrap)))
	}
	if m.height > 0 {
		lines = lastLines(lines, m.height-7)
	}
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n")

	indicator := "  "
	if m.recording || m.busy {
		indicator = m.spinner.View() + " "
	}
	style, ok := levelStyles[m.status.Level]
	if !ok {
		style = levelStyles[events.LevelInfo]
	}
	b.WriteString(indicator + style.Render(m.status.Message))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("space talk • s stop • r play • p preview • tab type • w save clip • q quit"))

	return b.String()
}

func renderLine(l line, width int) string {
	switch l.role {
	case events.RoleUser:
		return userStyle.Render(wordwrap.String("You: "+l.text, width))
	default:
		return assistantStyle.Render(wordwrap.String("Ema: "+l.text, width))
	}
}

// lastLines keeps the tail of the transcript that fits in height rows.
func lastLines(lines []string, height int) []string {
	if height <= 0 {
		return nil
	}
	rows := 0
	for i := len(lines) - 1; i >= 0; i-- {
		rows += strings.Count(lines[i], "\n") + 1
		if rows > height {
			return lines[i+1:]
		}
	}
	return lines
}
