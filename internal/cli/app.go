package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"ytdl-remote/internal/backend"
	"ytdl-remote/internal/config"
	"ytdl-remote/internal/history"
	"ytdl-remote/internal/logging"
	"ytdl-remote/internal/session"
)

type commonFlags struct {
	config *string
	server *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		config: fs.String("config", config.DefaultPath(), "config file path"),
		server: fs.String("server", "", "backend origin (overrides config)"),
	}
}

// app holds everything a command needs to talk to the backend. history may be nil when the
// database could not be opened.
type app struct {
	settings config.Settings
	log      *logrus.Logger
	client   *backend.Client
	history  *history.Store
}

type appOptions struct {
	// console receives log output in addition to the log file. Nil keeps logs off the terminal.
	console     io.Writer
	withHistory bool
}

func loadApp(flags commonFlags, opts appOptions) (*app, error) {
	settings, _, err := config.Load(strings.TrimSpace(*flags.config))
	if err != nil {
		return nil, err
	}
	if s := strings.TrimSpace(*flags.server); s != "" {
		settings.Server = s
	}
	return newApp(settings, opts)
}

func newApp(settings config.Settings, opts appOptions) (*app, error) {
	log, err := logging.New(logging.Options{
		Level:   settings.LogLevel,
		File:    settings.LogFile,
		Console: opts.console,
	})
	if err != nil {
		log = logging.Stderr(settings.LogLevel)
		log.WithError(err).Warn("file logging disabled")
	}

	baseURL, err := backend.ResolveBaseURL(settings.Server)
	if err != nil {
		return nil, err
	}
	a := &app{
		settings: settings,
		log:      log,
		client:   backend.New(baseURL, settings.RequestTimeout),
	}

	if opts.withHistory && strings.TrimSpace(settings.HistoryPath) != "" {
		store, err := history.Open(settings.HistoryPath)
		if err != nil {
			log.WithError(err).Warn("history disabled")
		} else {
			a.history = store
		}
	}
	log.WithField("base_url", baseURL).Debug("backend resolved")
	return a, nil
}

func (a *app) Close() error {
	if a.history == nil {
		return nil
	}
	return a.history.Close()
}

type sessionOptions struct {
	audioOnly bool
	outputDir string
}

func (a *app) newController(ctx context.Context, opts sessionOptions) *session.Controller {
	outDir := strings.TrimSpace(opts.outputDir)
	if outDir == "" {
		outDir = a.settings.OutputDir
	}
	var recorder session.Recorder
	if a.history != nil {
		recorder = a.history
	}
	return session.New(ctx, a.client, session.DirRetriever{Source: a.client, Dir: outDir}, recorder, session.Options{
		PollInterval:            a.settings.PollInterval,
		MaxPollDuration:         a.settings.MaxPollDuration,
		DismissDelay:            a.settings.DismissDelay,
		AlertDuration:           a.settings.AlertDuration,
		SurfaceModeChangeErrors: a.settings.SurfaceModeChangeErrors,
		OutputDir:               outDir,
		AudioOnly:               opts.audioOnly,
		Logger:                  logrus.NewEntry(a.log),
	})
}

func parseQualityFlag(raw string) (int, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" || v == "auto" || v == "0" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid --quality %q (use auto or a number from the quality list)", raw)
	}
	return n, nil
}
