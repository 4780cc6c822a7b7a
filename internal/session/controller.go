// Package session drives one download session: analysis, quality selection, job launch,
// progress tracking and retrieval of the finished file.
//
// A Controller is not safe for concurrent use. It is meant to live inside a bubbletea model;
// every intent and every message returns the commands that continue the workflow, and all
// state changes happen on the event loop that calls Update.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"ytdl-remote/internal/history"
	"ytdl-remote/internal/model"
	"ytdl-remote/internal/poller"
	"ytdl-remote/internal/sourceurl"
)

const (
	DefaultDismissDelay  = 5 * time.Second
	DefaultAlertDuration = 5 * time.Second

	MsgEmptyURL         = "Please enter a valid URL"
	MsgUnsupportedURL   = "Please enter a valid YouTube or YouTube Music URL"
	MsgAnalyzeFirst     = "Please analyze a video first"
	MsgBusy             = "Please wait for the current request to finish"
	MsgCloseProgress    = "Close the progress view first"
	MsgLaunched         = "Download started successfully!"
	MsgCompleted        = "Download completed successfully!"
	MsgDownloadFailed   = "Download failed"
	MsgStartingDownload = "Starting download..."
)

type Backend interface {
	Analyze(ctx context.Context, url string, audioOnly bool) (model.AnalysisResult, error)
	StartDownload(ctx context.Context, req model.LaunchRequest) (model.JobID, error)
	Status(ctx context.Context, id model.JobID) (model.JobStatus, error)
}

// Retriever saves the file behind handle under name and returns where it ended up.
type Retriever interface {
	Retrieve(ctx context.Context, handle, name string) (string, error)
}

type Recorder interface {
	Record(ctx context.Context, e history.Entry) (int64, error)
}

type Options struct {
	PollInterval    time.Duration
	MaxPollDuration time.Duration
	DismissDelay    time.Duration
	AlertDuration   time.Duration
	// SurfaceModeChangeErrors shows failed re-analysis after a mode switch as an alert
	// instead of only logging it.
	SurfaceModeChangeErrors bool
	// OutputDir is only used in user-facing messages about saved files.
	OutputDir string
	AudioOnly bool
	Logger    *logrus.Entry
}

type AlertKind string

const (
	AlertNone    AlertKind = ""
	AlertSuccess AlertKind = "success"
	AlertWarning AlertKind = "warning"
	AlertError   AlertKind = "error"
)

// Alert is the single transient notification. A newer alert replaces the current one.
type Alert struct {
	ID   uint64
	Kind AlertKind
	Text string
}

type Progress struct {
	Visible  bool
	JobID    model.JobID
	Percent  float64
	Message  string
	Terminal bool
}

// Outcome describes what happened to the most recent job once it reached a terminal status.
// Settled is set when nothing further will happen for it, file retrieval included. Recorded
// follows once the history write for it has returned.
type Outcome struct {
	JobID     model.JobID
	URL       string
	Title     string
	Status    model.JobStatusKind
	Message   string
	FileName  string
	SavedPath string
	Err       error
	Settled   bool
	Recorded  bool
}

type Controller struct {
	ctx       context.Context
	backend   Backend
	retriever Retriever
	recorder  Recorder
	log       *logrus.Entry
	opts      Options

	state     model.State
	analysis  *model.AnalysisResult
	audioOnly bool
	quality   int
	zip       bool

	analyzeSeq    uint64
	analyzeSilent bool
	analyzeURL    string
	analyzeCancel context.CancelFunc

	poller   *poller.Poller
	jobID    model.JobID
	jobURL   string
	jobTitle string
	jobGen   uint64
	progress Progress
	outcome  *Outcome

	alert    Alert
	alertSeq uint64
}

func New(ctx context.Context, be Backend, retriever Retriever, recorder Recorder, opts Options) *Controller {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.DismissDelay <= 0 {
		opts.DismissDelay = DefaultDismissDelay
	}
	if opts.AlertDuration <= 0 {
		opts.AlertDuration = DefaultAlertDuration
	}
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Controller{
		ctx:       ctx,
		backend:   be,
		retriever: retriever,
		recorder:  recorder,
		log:       log,
		opts:      opts,
		state:     model.StateIdle,
		audioOnly: opts.AudioOnly,
		quality:   model.AutoQuality,
		poller: poller.New(be, poller.Options{
			Interval:    opts.PollInterval,
			MaxDuration: opts.MaxPollDuration,
		}),
	}
}

func (c *Controller) State() model.State { return c.state }
func (c *Controller) AudioOnly() bool { return c.audioOnly }
func (c *Controller) Quality() int { return c.quality }
func (c *Controller) JobID() model.JobID { return c.jobID }
func (c *Controller) Progress() Progress { return c.progress }
func (c *Controller) Alert() Alert { return c.alert }
func (c *Controller) PollerState() poller.State {
	return c.poller.State()
}

// Analysis returns the current analysis, if any.
func (c *Controller) Analysis() (model.AnalysisResult, bool) {
	if c.analysis == nil {
		return model.AnalysisResult{}, false
	}
	return *c.analysis, true
}

// Zip reports whether the next launch will ask for an archive.
func (c *Controller) Zip() bool {
	return c.zip && c.ZipAvailable()
}

func (c *Controller) ZipAvailable() bool {
	return c.analysis != nil && c.analysis.IsPlaylist
}

func (c *Controller) Outcome() (Outcome, bool) {
	if c.outcome == nil {
		return Outcome{}, false
	}
	return *c.outcome, true
}

// Submit validates raw and starts a new analysis. An analysis already in flight is
// superseded and its response will be ignored.
func (c *Controller) Submit(raw string) tea.Cmd {
	switch c.state {
	case model.StateLaunching:
		return c.showAlert(AlertWarning, MsgBusy)
	case model.StateInProgress:
		return c.showAlert(AlertWarning, MsgCloseProgress)
	}

	url := strings.TrimSpace(raw)
	if url == "" {
		return c.showAlert(AlertError, MsgEmptyURL)
	}
	if !sourceurl.IsSupported(url) {
		return c.showAlert(AlertError, MsgUnsupportedURL)
	}
	return c.beginAnalysis(url, false)
}

// SetAudioOnly switches the download mode. With an analysis present the URL is analyzed
// again in the new mode so quality indices always belong to the current mode.
func (c *Controller) SetAudioOnly(audioOnly bool) tea.Cmd {
	if audioOnly == c.audioOnly {
		return nil
	}
	c.audioOnly = audioOnly

	switch c.state {
	case model.StateAnalyzing:
		return c.beginAnalysis(c.analyzeURL, c.analyzeSilent)
	case model.StateLaunching:
		return c.showAlert(AlertWarning, MsgBusy)
	case model.StateInProgress:
		return c.showAlert(AlertWarning, MsgCloseProgress)
	}
	return c.reanalyzeIfStale()
}

// SelectQuality picks index against the current analysis. 0 is the automatic choice.
func (c *Controller) SelectQuality(index int) error {
	if c.analysis == nil {
		return errors.New(MsgAnalyzeFirst)
	}
	if !c.analysis.ValidQuality(index) {
		return fmt.Errorf("quality %d is out of range (0-%d)", index, len(c.analysis.Qualities))
	}
	c.quality = index
	return nil
}

func (c *Controller) SetZip(zip bool) {
	c.zip = zip
}

// Download launches a job for the current analysis. Launching while a job is tracked
// replaces it; the old poller is stopped before the request goes out.
func (c *Controller) Download() tea.Cmd {
	if c.analysis == nil {
		return c.showAlert(AlertWarning, MsgAnalyzeFirst)
	}
	switch c.state {
	case model.StateAnalyzing, model.StateLaunching:
		return c.showAlert(AlertWarning, MsgBusy)
	case model.StateInProgress:
		c.releaseJob()
	}

	quality := c.quality
	if c.analysis.AudioOnly != c.audioOnly || !c.analysis.ValidQuality(quality) {
		quality = model.AutoQuality
	}
	req := model.LaunchRequest{
		URL:          c.analysis.URL,
		QualityIndex: quality,
		AudioOnly:    c.audioOnly,
		CreateZip:    c.Zip(),
	}
	if !c.setState(model.StateLaunching) {
		return nil
	}
	c.log.WithFields(logrus.Fields{
		"url":       req.URL,
		"format_id": req.FormatID(),
		"audio":     req.AudioOnly,
		"zip":       req.CreateZip,
	}).Info("starting download")
	return c.launchCmd(req)
}

// Close hides the progress view and stops tracking the job, whatever its status. Closing
// when nothing is shown does nothing.
func (c *Controller) Close() tea.Cmd {
	if c.state != model.StateInProgress {
		return nil
	}
	c.releaseJob()
	c.setState(model.StateIdle)
	return c.reanalyzeIfStale()
}

func (c *Controller) releaseJob() {
	c.poller.Stop()
	c.jobID = ""
	c.jobGen++
	c.progress = Progress{}
}

// reanalyzeIfStale re-issues the analysis when the mode changed since it was produced.
func (c *Controller) reanalyzeIfStale() tea.Cmd {
	if c.analysis == nil || c.analysis.AudioOnly == c.audioOnly {
		return nil
	}
	return c.beginAnalysis(c.analysis.URL, true)
}

func (c *Controller) beginAnalysis(url string, silent bool) tea.Cmd {
	if !c.setState(model.StateAnalyzing) {
		return nil
	}
	if c.analyzeCancel != nil {
		c.analyzeCancel()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.analyzeCancel = cancel
	c.analyzeSeq++
	c.analyzeSilent = silent
	c.analyzeURL = url
	return c.analyzeCmd(ctx, c.analyzeSeq, url, c.audioOnly, silent)
}

func (c *Controller) setState(to model.State) bool {
	if err := model.Transition(&c.state, to); err != nil {
		c.log.WithError(err).Error("refused state change")
		return false
	}
	return true
}

func (c *Controller) showAlert(kind AlertKind, text string) tea.Cmd {
	c.alertSeq++
	c.alert = Alert{ID: c.alertSeq, Kind: kind, Text: text}
	id := c.alertSeq
	return tea.Tick(c.opts.AlertDuration, func(time.Time) tea.Msg {
		return alertExpiredMsg{id: id}
	})
}
