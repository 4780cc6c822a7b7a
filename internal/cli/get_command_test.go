package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ytdl-remote/internal/model"
	"ytdl-remote/internal/session"
)

func runTestGet(t *testing.T, a *app, opts getOptions) (session.Outcome, string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var buf bytes.Buffer
	outcome, err := executeGet(ctx, a, opts, &buf, false)
	return outcome, buf.String(), err
}

func TestExecuteGetSavesFileAndRecordsHistory(t *testing.T) {
	a, outDir := newTestApp(t, 50)

	outcome, out, err := runTestGet(t, a, getOptions{url: "https://youtu.be/abc", quality: 2})
	if err != nil {
		t.Fatalf("get failed: %v\noutput:\n%s", err, out)
	}
	if outcome.Status != model.JobCompleted {
		t.Fatalf("expected completed, got %q", outcome.Status)
	}
	want := filepath.Join(outDir, "Mock video abc.mp4")
	if outcome.SavedPath != want {
		t.Fatalf("expected saved path %q, got %q", want, outcome.SavedPath)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if !strings.Contains(string(data), "https://youtu.be/abc") {
		t.Fatalf("unexpected file content: %q", string(data))
	}
	for _, phase := range []string{"analyzing", "launching", "downloading", "done: "} {
		if !strings.Contains(out, phase) {
			t.Fatalf("expected %q in progress output:\n%s", phase, out)
		}
	}

	entries, err := a.history.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(entries))
	}
	if entries[0].Status != string(model.JobCompleted) || entries[0].SavedPath != want {
		t.Fatalf("unexpected history entry: %+v", entries[0])
	}
	if entries[0].Title != "Mock video abc" {
		t.Fatalf("expected title in history, got %q", entries[0].Title)
	}
}

func TestExecuteGetReportsFailedJob(t *testing.T) {
	a, outDir := newTestApp(t, 50)

	outcome, _, err := runTestGet(t, a, getOptions{url: "https://youtu.be/fail-me"})
	if err == nil || err.Error() != "Video unavailable" {
		t.Fatalf("expected backend reason, got %v", err)
	}
	if outcome.Status != model.JobFailed {
		t.Fatalf("expected failed outcome, got %q", outcome.Status)
	}
	files, _ := os.ReadDir(outDir)
	if len(files) != 0 {
		t.Fatalf("expected no files saved, got %d", len(files))
	}
	entries, err := a.history.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != string(model.JobFailed) {
		t.Fatalf("expected one failed history entry, got %+v", entries)
	}
}

func TestExecuteGetAudioPlaylistZip(t *testing.T) {
	a, outDir := newTestApp(t, 100)

	outcome, _, err := runTestGet(t, a, getOptions{
		url:   "https://music.youtube.com/playlist?list=PL123",
		audio: true,
		zip:   true,
	})
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if outcome.SavedPath != filepath.Join(outDir, "playlist_PL123.zip") {
		t.Fatalf("unexpected saved path %q", outcome.SavedPath)
	}
}

func TestExecuteGetStopsBeforeLaunch(t *testing.T) {
	cases := []struct {
		name string
		opts getOptions
		want string
	}{
		{name: "unsupported url", opts: getOptions{url: "https://example.com/v"}, want: session.MsgUnsupportedURL},
		{name: "quality out of range", opts: getOptions{url: "https://youtu.be/abc", quality: 99}, want: "out of range"},
		{name: "zip on single video", opts: getOptions{url: "https://youtu.be/abc", zip: true}, want: "only available for playlists"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, _ := newTestApp(t, 50)
			outcome, out, err := runTestGet(t, a, tc.opts)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
			if outcome.JobID != "" {
				t.Fatalf("expected no job, got %q", outcome.JobID)
			}
			if !strings.Contains(out, "failed: ") {
				t.Fatalf("expected failure line, got:\n%s", out)
			}
			entries, _ := a.history.List(context.Background(), 10)
			if len(entries) != 0 {
				t.Fatalf("expected empty history, got %d entries", len(entries))
			}
		})
	}
}

func TestParseQualityFlag(t *testing.T) {
	cases := map[string]int{
		"":     0,
		"auto": 0,
		"AUTO": 0,
		"0":    0,
		"3":    3,
		" 12 ": 12,
	}
	for in, want := range cases {
		got, err := parseQualityFlag(in)
		if err != nil {
			t.Fatalf("parseQualityFlag(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("parseQualityFlag(%q)=%d want %d", in, got, want)
		}
	}
	for _, in := range []string{"best", "-1", "1.5"} {
		if _, err := parseQualityFlag(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}
