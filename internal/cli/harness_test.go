package cli

import (
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"ytdl-remote/internal/backend"
	"ytdl-remote/internal/config"
	"ytdl-remote/internal/history"
	"ytdl-remote/internal/logging"
	"ytdl-remote/internal/mockserver"
)

// newTestApp wires an app against an in-process mock backend. Files land in the returned
// output directory and history goes to a fresh database.
func newTestApp(t *testing.T, step float64) (*app, string) {
	t.Helper()
	log, err := logging.New(logging.Options{Level: "error"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	srv, err := mockserver.New(mockserver.Options{
		Step:   step,
		Dir:    t.TempDir(),
		Logger: logrus.NewEntry(log),
	})
	if err != nil {
		t.Fatalf("mock server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	outDir := t.TempDir()
	settings := config.Defaults()
	settings.PollInterval = 5 * time.Millisecond
	settings.DismissDelay = time.Second
	settings.AlertDuration = 10 * time.Millisecond
	settings.OutputDir = outDir
	settings.HistoryPath = ""
	settings.LogFile = ""

	return &app{
		settings: settings,
		log:      log,
		client:   backend.New(ts.URL+"/api", 5*time.Second),
		history:  store,
	}, outDir
}
