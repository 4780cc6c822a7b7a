package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"ytdl-remote/internal/model"
	"ytdl-remote/internal/session"
)

type getOptions struct {
	url     string
	audio   bool
	quality int
	zip     bool
	outDir  string
}

type getPhase int

const (
	getPhaseAnalyze getPhase = iota
	getPhaseLaunch
	getPhaseTrack
	getPhaseDone
)

type getStartMsg struct{}

// getModel runs the analyze, launch and track steps without a terminal UI. It drives the same
// controller the interactive view uses and quits once the job has settled.
type getModel struct {
	ctrl  *session.Controller
	opts  getOptions
	line  *progressLine
	phase getPhase
	err   error
}

func runGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	common := addCommonFlags(fs)
	rawURL := fs.String("url", "", "YouTube or YouTube Music URL")
	audio := fs.Bool("audio", false, "download audio only")
	quality := fs.String("quality", "auto", "quality: auto or the 1-based position from 'info'")
	zip := fs.Bool("zip", false, "ask for a zip archive (playlists only)")
	out := fs.String("out", "", "directory for the downloaded file (overrides config)")
	verbose := fs.Bool("verbose", false, "also log to stderr")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*rawURL) == "" {
		return errors.New("--url is required")
	}
	q, err := parseQualityFlag(*quality)
	if err != nil {
		return err
	}

	appOpts := appOptions{withHistory: true}
	if *verbose {
		appOpts.console = os.Stderr
	}
	a, err := loadApp(common, appOpts)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var lineOut io.Writer = os.Stdout
	if *jsonOut {
		lineOut = nil
	}
	outcome, err := executeGet(ctx, a, getOptions{
		url:     *rawURL,
		audio:   *audio,
		quality: q,
		zip:     *zip,
		outDir:  *out,
	}, lineOut, !*jsonOut && stdoutIsTTY())

	if *jsonOut {
		payload := map[string]any{
			"url":    strings.TrimSpace(*rawURL),
			"ok":     err == nil,
			"job_id": outcome.JobID,
			"status": outcome.Status,
		}
		if outcome.Title != "" {
			payload["title"] = outcome.Title
		}
		if outcome.FileName != "" {
			payload["file_name"] = outcome.FileName
		}
		if outcome.SavedPath != "" {
			payload["saved_path"] = outcome.SavedPath
		}
		if err != nil {
			payload["error"] = err.Error()
		}
		if perr := printJSON(payload); perr != nil {
			return perr
		}
		return err
	}
	if err != nil {
		return err
	}
	fmt.Printf("job: %s\n", outcome.JobID)
	if outcome.SavedPath != "" {
		size := ""
		if info, statErr := os.Stat(outcome.SavedPath); statErr == nil {
			size = " (" + formatBytesIEC(info.Size()) + ")"
		}
		fmt.Printf("saved: %s%s\n", outcome.SavedPath, size)
	} else {
		fmt.Println("completed: the backend did not offer a file")
	}
	return nil
}

// executeGet runs the whole workflow for one URL. Progress goes to out when it is non-nil.
func executeGet(ctx context.Context, a *app, opts getOptions, out io.Writer, inPlace bool) (session.Outcome, error) {
	ctrl := a.newController(ctx, sessionOptions{audioOnly: opts.audio, outputDir: opts.outDir})
	m := getModel{
		ctrl: ctrl,
		opts: opts,
		line: newProgressLine(out, inPlace, ""),
	}

	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) || errors.Is(ctx.Err(), context.Canceled) {
			m.line.Stop("")
			return session.Outcome{}, errors.New("interrupted")
		}
		return session.Outcome{}, err
	}
	fm, ok := final.(getModel)
	if !ok {
		return session.Outcome{}, errors.New("unexpected program state")
	}
	outcome, _ := fm.ctrl.Outcome()
	if fm.err != nil {
		return outcome, fm.err
	}
	return outcome, outcome.Err
}

func (m getModel) Init() tea.Cmd {
	return func() tea.Msg { return getStartMsg{} }
}

func (m getModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(getStartMsg); ok {
		m.line.SetPhase("analyzing")
		cmd := m.ctrl.Submit(m.opts.url)
		if m.ctrl.State() != model.StateAnalyzing {
			return m.fail(errors.New(m.ctrl.Alert().Text))
		}
		return m, cmd
	}

	cmd := m.ctrl.Update(msg)
	switch m.phase {
	case getPhaseAnalyze:
		switch m.ctrl.State() {
		case model.StateReady:
			return m.launch(cmd)
		case model.StateIdle:
			return m.fail(errors.New(m.ctrl.Alert().Text))
		}
	case getPhaseLaunch:
		switch m.ctrl.State() {
		case model.StateInProgress:
			m.phase = getPhaseTrack
			m.line.SetProgress(0, session.MsgStartingDownload)
		case model.StateReady:
			return m.fail(errors.New(m.ctrl.Alert().Text))
		}
	case getPhaseTrack:
		pr := m.ctrl.Progress()
		if pr.Visible {
			m.line.SetProgress(pr.Percent, pr.Message)
		}
		if o, ok := m.ctrl.Outcome(); ok && o.Settled && o.Recorded {
			m.phase = getPhaseDone
			m.line.Stop(outcomeLine(o))
			return m, tea.Quit
		}
	}
	return m, cmd
}

func (m getModel) View() string {
	return ""
}

func (m getModel) launch(pending tea.Cmd) (tea.Model, tea.Cmd) {
	if res, ok := m.ctrl.Analysis(); ok {
		m.line.SetTitle(res.Title)
	}
	if err := m.ctrl.SelectQuality(m.opts.quality); err != nil {
		return m.fail(err)
	}
	if m.opts.zip {
		if !m.ctrl.ZipAvailable() {
			return m.fail(errors.New("--zip is only available for playlists"))
		}
		m.ctrl.SetZip(true)
	}
	m.phase = getPhaseLaunch
	m.line.SetPhase("launching")
	return m, tea.Batch(pending, m.ctrl.Download())
}

func (m getModel) fail(err error) (tea.Model, tea.Cmd) {
	m.err = err
	m.phase = getPhaseDone
	m.line.Stop("failed: " + err.Error())
	return m, tea.Quit
}

func outcomeLine(o session.Outcome) string {
	if o.Err != nil {
		return "failed: " + o.Err.Error()
	}
	return "done: " + defaultIfEmpty(o.Message, session.MsgCompleted)
}
