package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ytdl-remote/internal/history"
)

func TestListWindowKeepsCursorVisible(t *testing.T) {
	cases := []struct {
		total, cursor, rows int
		start, end          int
	}{
		{total: 3, cursor: 2, rows: 5, start: 0, end: 3},
		{total: 10, cursor: 0, rows: 4, start: 0, end: 4},
		{total: 10, cursor: 5, rows: 4, start: 3, end: 7},
		{total: 10, cursor: 9, rows: 4, start: 6, end: 10},
	}
	for _, tc := range cases {
		start, end := listWindow(tc.total, tc.cursor, tc.rows)
		if start != tc.start || end != tc.end {
			t.Fatalf("listWindow(%d,%d,%d)=(%d,%d) want (%d,%d)", tc.total, tc.cursor, tc.rows, start, end, tc.start, tc.end)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("héllo wörld", 6); got != "héllo…" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncateRunes("short", 10); got != "short" {
		t.Fatalf("expected unchanged, got %q", got)
	}
	if got := truncateRunes("x", 0); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestFormatBytesIEC(t *testing.T) {
	cases := map[int64]string{
		0:               "0 B",
		512:             "512 B",
		1536:            "1.5 KiB",
		5 * 1024 * 1024: "5.0 MiB",
	}
	for in, want := range cases {
		if got := formatBytesIEC(in); got != want {
			t.Fatalf("formatBytesIEC(%d)=%q want %q", in, got, want)
		}
	}
}

func TestProgressLineDedupesPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressLine(&buf, false, "Song")
	p.SetPhase("analyzing")
	p.SetProgress(40, "Downloading...")
	p.SetProgress(40, "Downloading...")
	p.Stop("done: ok")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), buf.String())
	}
	if lines[1] != "downloading   40.0%  Downloading...  | Song" {
		t.Fatalf("unexpected progress line %q", lines[1])
	}
}

func TestProgressLineRedrawsInPlace(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressLine(&buf, true, "")
	p.SetProgress(10, "")
	p.Stop("done")
	if !strings.HasPrefix(buf.String(), "\r\033[2Kdownloading") {
		t.Fatalf("expected carriage-return redraw, got %q", buf.String())
	}
	if !strings.HasSuffix(buf.String(), "\r\033[2Kdone\n") {
		t.Fatalf("expected final line, got %q", buf.String())
	}
}

func TestHistoryLinePrefersSavedPath(t *testing.T) {
	line := historyLine(history.Entry{
		CreatedAt: "2024-01-01T00:00:00Z",
		Status:    "completed",
		JobID:     "j1",
		Title:     "Song",
		SavedPath: "/tmp/Song.mp4",
		Message:   "ignored",
	})
	if line != "2024-01-01T00:00:00Z  completed  j1  Song  -> /tmp/Song.mp4" {
		t.Fatalf("unexpected line %q", line)
	}
	line = historyLine(history.Entry{Status: "error", JobID: "j2", URL: "https://youtu.be/x", Message: "Video unavailable"})
	if !strings.HasSuffix(line, "https://youtu.be/x  (Video unavailable)") {
		t.Fatalf("unexpected line %q", line)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := runConfig([]string{"init", "--config", path}); err != nil {
		t.Fatalf("first init: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if err := runConfig([]string{"init", "--config", path}); err == nil {
		t.Fatal("expected second init without --force to fail")
	}
	if err := runConfig([]string{"init", "--config", path, "--force"}); err != nil {
		t.Fatalf("forced init: %v", err)
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	if err := Run([]string{"nope"}); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
	if err := Run([]string{"config", "nope"}); err == nil {
		t.Fatal("expected unknown config subcommand error")
	}
}
