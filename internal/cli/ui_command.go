package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ytdl-remote/internal/model"
	"ytdl-remote/internal/session"
)

type uiFocus int

const (
	uiFocusURL uiFocus = iota
	uiFocusOptions
)

type uiModel struct {
	ctrl    *session.Controller
	input   textinput.Model
	spinner spinner.Model
	bar     progress.Model
	focus   uiFocus
	width   int
	height  int
}

var (
	uiTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	uiMutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	uiErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	uiWarnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	uiOKStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	uiPanelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	uiActiveStyle  = uiPanelStyle.BorderForeground(lipgloss.Color("62"))
	uiSelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
	uiSpinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
)

func runUI(args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	common := addCommonFlags(fs)
	audio := fs.Bool("audio", false, "start in audio-only mode")
	out := fs.String("out", "", "directory for downloaded files (overrides config)")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !stdinIsTTY() {
		return errors.New("ui requires an interactive terminal (TTY)")
	}

	a, err := loadApp(common, appOptions{withHistory: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctrl := a.newController(ctx, sessionOptions{audioOnly: *audio, outputDir: *out})

	p := tea.NewProgram(newUIModel(ctrl), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "tty") {
			return errors.New("ui requires an interactive terminal (TTY)")
		}
		return err
	}
	return nil
}

func newUIModel(ctrl *session.Controller) uiModel {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "https://www.youtube.com/watch?v=..."
	input.CharLimit = 2048
	input.Width = 60
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = uiSpinnerStyle

	return uiModel{
		ctrl:    ctrl,
		input:   input,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		focus:   uiFocusURL,
	}
}

func (m uiModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = clampInt(m.width-10, 20, 120)
		m.bar.Width = clampInt(m.width-16, 10, 80)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.updateKey(msg)
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)

	before := m.ctrl.State()
	cmd := m.ctrl.Update(msg)
	if before == model.StateAnalyzing && m.ctrl.State() == model.StateReady && m.focus == uiFocusURL {
		m.setFocus(uiFocusOptions)
	}
	return m, tea.Batch(inputCmd, cmd)
}

func (m uiModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab", "shift+tab":
		if m.focus == uiFocusURL {
			m.setFocus(uiFocusOptions)
		} else {
			m.setFocus(uiFocusURL)
		}
		return m, nil
	case "esc":
		return m, m.ctrl.Close()
	}

	if m.focus == uiFocusURL {
		if msg.Type == tea.KeyEnter {
			return m, m.ctrl.Submit(m.input.Value())
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "enter":
		return m, m.ctrl.Download()
	case "a":
		return m, m.ctrl.SetAudioOnly(true)
	case "v":
		return m, m.ctrl.SetAudioOnly(false)
	case "up", "k":
		_ = m.ctrl.SelectQuality(m.ctrl.Quality() - 1)
		return m, nil
	case "down", "j":
		_ = m.ctrl.SelectQuality(m.ctrl.Quality() + 1)
		return m, nil
	case "z":
		if m.ctrl.ZipAvailable() {
			m.ctrl.SetZip(!m.ctrl.Zip())
		}
		return m, nil
	case "x":
		return m, m.ctrl.Close()
	}
	return m, nil
}

func (m *uiModel) setFocus(f uiFocus) {
	m.focus = f
	if f == uiFocusURL {
		m.input.Focus()
		return
	}
	m.input.Blur()
}

func (m uiModel) View() string {
	if m.width <= 0 {
		m.width = 100
	}
	if m.height <= 0 {
		m.height = 30
	}
	panelW := clampInt(m.width-2, 40, 120)

	header := uiTitleStyle.Render("ytdl-remote") + "\n" +
		uiMutedStyle.Render(m.hints())

	sections := []string{header, m.renderURLPanel(panelW)}
	if _, ok := m.ctrl.Analysis(); ok {
		sections = append(sections, m.renderOptionsPanel(panelW))
	}
	if m.ctrl.Progress().Visible {
		sections = append(sections, m.renderProgressPanel(panelW))
	}
	sections = append(sections, m.renderAlertLine(panelW))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m uiModel) hints() string {
	if m.focus == uiFocusURL {
		return "enter: analyze | tab: options | esc: close progress | ctrl+c: quit"
	}
	return "enter: download | up/down: quality | a/v: audio/video | z: zip | x: close progress | tab: url | q: quit"
}

func (m uiModel) renderURLPanel(width int) string {
	lines := []string{"URL", m.input.View()}
	switch m.ctrl.State() {
	case model.StateAnalyzing:
		lines = append(lines, m.spinner.View()+" Analyzing...")
	case model.StateLaunching:
		lines = append(lines, m.spinner.View()+" "+session.MsgStartingDownload)
	}
	lines = append(lines, uiMutedStyle.Render("mode: "+modeLabel(m.ctrl.AudioOnly())))

	style := uiPanelStyle
	if m.focus == uiFocusURL {
		style = uiActiveStyle
	}
	return style.Width(width).Render(strings.Join(lines, "\n"))
}

func (m uiModel) renderOptionsPanel(width int) string {
	res, _ := m.ctrl.Analysis()
	inner := maxInt(width-6, 12)

	lines := []string{
		wrapOrTrim(kv("title", defaultIfEmpty(res.Title, "(unknown)")), inner),
		kv("duration", defaultIfEmpty(res.DurationText, "(unknown)")),
		kv("playlist", yesNo(res.IsPlaylist)),
	}
	if res.ThumbnailURL != "" {
		lines = append(lines, uiMutedStyle.Render(wrapOrTrim(kv("thumbnail", res.ThumbnailURL), inner)))
	}
	if res.AudioOnly != m.ctrl.AudioOnly() {
		lines = append(lines, uiWarnStyle.Render("qualities below are for "+modeLabel(res.AudioOnly)+" mode"))
	}
	lines = append(lines, "", "Quality")

	total := len(res.Qualities) + 1
	maxRows := clampInt(m.height-18, 3, 12)
	start, end := listWindow(total, m.ctrl.Quality(), maxRows)
	if start > 0 {
		lines = append(lines, uiMutedStyle.Render("..."))
	}
	for i := start; i < end; i++ {
		line := truncateRunes(fmt.Sprintf("%d. %s", i, res.QualityLabel(i)), inner)
		if i == m.ctrl.Quality() {
			line = uiSelStyle.Render(line)
		}
		lines = append(lines, line)
	}
	if end < total {
		lines = append(lines, uiMutedStyle.Render("..."))
	}

	if m.ctrl.ZipAvailable() {
		mark := " "
		if m.ctrl.Zip() {
			mark = "x"
		}
		lines = append(lines, "", fmt.Sprintf("[%s] zip archive", mark))
	}

	style := uiPanelStyle
	if m.focus == uiFocusOptions {
		style = uiActiveStyle
	}
	return style.Width(width).Render(strings.Join(lines, "\n"))
}

func (m uiModel) renderProgressPanel(width int) string {
	pr := m.ctrl.Progress()
	lines := []string{
		kv("job", string(pr.JobID)),
		m.bar.ViewAs(clampFloat(pr.Percent/100, 0, 1)),
		fmt.Sprintf("%.0f%% %s", pr.Percent, pr.Message),
	}
	if pr.Terminal {
		lines = append(lines, uiMutedStyle.Render("x or esc closes this view"))
	}
	return uiPanelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m uiModel) renderAlertLine(width int) string {
	alert := m.ctrl.Alert()
	if alert.Kind == session.AlertNone || strings.TrimSpace(alert.Text) == "" {
		return ""
	}
	style := uiMutedStyle
	switch alert.Kind {
	case session.AlertSuccess:
		style = uiOKStyle
	case session.AlertWarning:
		style = uiWarnStyle
	case session.AlertError:
		style = uiErrorStyle
	}
	return style.Width(width).Render(truncateRunes(alert.Text, maxInt(width-2, 10)))
}

func modeLabel(audioOnly bool) string {
	if audioOnly {
		return "audio"
	}
	return "video"
}
