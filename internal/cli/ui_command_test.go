package cli

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"ytdl-remote/internal/model"
	"ytdl-remote/internal/session"
)

func newTestUI(t *testing.T) uiModel {
	t.Helper()
	a, _ := newTestApp(t, 50)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return newUIModel(a.newController(ctx, sessionOptions{}))
}

func press(t *testing.T, m uiModel, msg tea.KeyMsg) (uiModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	um, ok := next.(uiModel)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return um, cmd
}

func typeText(t *testing.T, m uiModel, s string) uiModel {
	t.Helper()
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

// deliver runs cmd once and feeds its message back, as the program loop would.
func deliver(t *testing.T, m uiModel, cmd tea.Cmd) uiModel {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	next, _ := m.Update(cmd())
	return next.(uiModel)
}

func analyzedUI(t *testing.T, url string) uiModel {
	t.Helper()
	m := typeText(t, newTestUI(t), url)
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.ctrl.State(); got != model.StateAnalyzing {
		t.Fatalf("expected analyzing after enter, got %s", got)
	}
	m = deliver(t, m, cmd)
	if got := m.ctrl.State(); got != model.StateReady {
		t.Fatalf("expected ready after analysis, got %s", got)
	}
	return m
}

func TestUISubmitMovesFocusToOptions(t *testing.T) {
	m := analyzedUI(t, "https://youtu.be/abc")
	if m.focus != uiFocusOptions {
		t.Fatalf("expected options focus after analysis, got %d", m.focus)
	}
	view := m.View()
	if !strings.Contains(view, "Mock video abc") {
		t.Fatalf("expected title in view:\n%s", view)
	}
	if !strings.Contains(view, "Auto (Best Available)") {
		t.Fatalf("expected auto quality entry in view:\n%s", view)
	}
}

func TestUIEmptySubmitShowsAlert(t *testing.T) {
	m := newTestUI(t)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.ctrl.State(); got != model.StateIdle {
		t.Fatalf("expected idle, got %s", got)
	}
	if !strings.Contains(m.View(), session.MsgEmptyURL) {
		t.Fatalf("expected %q in view", session.MsgEmptyURL)
	}
}

func TestUIQualityKeysStayInRange(t *testing.T) {
	m := analyzedUI(t, "https://youtu.be/abc")
	res, _ := m.ctrl.Analysis()

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if got := m.ctrl.Quality(); got != model.AutoQuality {
		t.Fatalf("expected up at auto to stay 0, got %d", got)
	}
	for i := 0; i < len(res.Qualities)+3; i++ {
		m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	if got := m.ctrl.Quality(); got != len(res.Qualities) {
		t.Fatalf("expected quality clamped at %d, got %d", len(res.Qualities), got)
	}
}

func TestUIModeKeyReanalyzes(t *testing.T) {
	m := analyzedUI(t, "https://youtu.be/abc")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	if !m.ctrl.AudioOnly() {
		t.Fatal("expected audio mode after 'a'")
	}
	if got := m.ctrl.State(); got != model.StateAnalyzing {
		t.Fatalf("expected re-analysis, got %s", got)
	}
	m = deliver(t, m, cmd)
	res, _ := m.ctrl.Analysis()
	if !res.AudioOnly {
		t.Fatal("expected audio analysis")
	}
	if got := m.ctrl.Quality(); got != model.AutoQuality {
		t.Fatalf("expected quality reset to auto, got %d", got)
	}
}

func TestUIKeysGoToInputWhenURLFocused(t *testing.T) {
	m := newTestUI(t)
	m = typeText(t, m, "az")
	if m.ctrl.AudioOnly() {
		t.Fatal("typing in the url field must not switch mode")
	}
	if got := m.input.Value(); got != "az" {
		t.Fatalf("expected input value az, got %q", got)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != uiFocusOptions {
		t.Fatal("expected tab to move focus to options")
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	if !m.ctrl.AudioOnly() {
		t.Fatal("expected 'a' to switch mode in options focus")
	}
	if got := m.ctrl.State(); got != model.StateIdle {
		t.Fatalf("mode change without analysis should not analyze, got %s", got)
	}
}

func TestUIZipToggleOnlyForPlaylists(t *testing.T) {
	m := analyzedUI(t, "https://youtu.be/abc")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'z'}})
	if m.ctrl.Zip() {
		t.Fatal("zip must stay off for a single video")
	}

	p := analyzedUI(t, "https://www.youtube.com/playlist?list=PL9")
	p, _ = press(t, p, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'z'}})
	if !p.ctrl.Zip() {
		t.Fatal("expected zip on for a playlist")
	}
	if !strings.Contains(p.View(), "[x] zip archive") {
		t.Fatalf("expected checked zip box in view:\n%s", p.View())
	}
}

func TestUIDownloadShowsProgress(t *testing.T) {
	m := analyzedUI(t, "https://youtu.be/abc")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.ctrl.State(); got != model.StateLaunching {
		t.Fatalf("expected launching, got %s", got)
	}
	m = deliver(t, m, cmd)
	if got := m.ctrl.State(); got != model.StateInProgress {
		t.Fatalf("expected in progress, got %s", got)
	}
	view := m.View()
	if !strings.Contains(view, session.MsgStartingDownload) {
		t.Fatalf("expected starting message in view:\n%s", view)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	if got := m.ctrl.State(); got != model.StateIdle {
		t.Fatalf("expected idle after close, got %s", got)
	}
	if m.ctrl.Progress().Visible {
		t.Fatal("expected progress hidden after close")
	}
}
