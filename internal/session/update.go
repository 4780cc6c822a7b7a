package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"ytdl-remote/internal/backend"
	"ytdl-remote/internal/history"
	"ytdl-remote/internal/model"
	"ytdl-remote/internal/poller"
)

type analyzeResultMsg struct {
	seq    uint64
	silent bool
	url    string
	result model.AnalysisResult
	err    error
}

type launchResultMsg struct {
	req model.LaunchRequest
	id  model.JobID
	err error
}

type dismissMsg struct {
	gen uint64
}

type alertExpiredMsg struct {
	id uint64
}

type recordedMsg struct {
	jobID model.JobID
}

type retrievedMsg struct {
	jobID   model.JobID
	name    string
	path    string
	err     error
	outcome Outcome
}

// Update applies msg and returns the commands it schedules. Messages the controller does
// not own are ignored.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	if ev, cmd, handled := c.poller.Update(msg); handled {
		return tea.Batch(cmd, c.applyPollEvent(ev))
	}

	switch msg := msg.(type) {
	case analyzeResultMsg:
		return c.handleAnalyzeResult(msg)
	case launchResultMsg:
		return c.handleLaunchResult(msg)
	case retrievedMsg:
		return c.handleRetrieved(msg)
	case recordedMsg:
		c.markRecorded(msg.jobID)
		return nil
	case dismissMsg:
		if msg.gen != c.jobGen {
			return nil
		}
		return c.Close()
	case alertExpiredMsg:
		if msg.id == c.alert.ID {
			c.alert = Alert{}
		}
		return nil
	}
	return nil
}

func (c *Controller) handleAnalyzeResult(msg analyzeResultMsg) tea.Cmd {
	if msg.seq != c.analyzeSeq || c.state != model.StateAnalyzing {
		c.log.WithField("url", msg.url).Debug("dropping superseded analysis")
		return nil
	}
	if c.analyzeCancel != nil {
		c.analyzeCancel()
		c.analyzeCancel = nil
	}

	if msg.err == nil {
		res := msg.result
		c.analysis = &res
		c.quality = model.AutoQuality
		if !res.IsPlaylist {
			c.zip = false
		}
		c.setState(model.StateReady)
		c.log.WithFields(logrus.Fields{
			"url":       res.URL,
			"audio":     res.AudioOnly,
			"qualities": len(res.Qualities),
		}).Info("analysis ready")
		return nil
	}

	if c.analysis != nil {
		c.setState(model.StateReady)
	} else {
		c.setState(model.StateIdle)
	}

	entry := c.log.WithFields(logrus.Fields{"url": msg.url, "error": msg.err.Error()})
	if msg.silent {
		// The kept analysis belongs to the other mode, so its indices are no longer usable.
		c.quality = model.AutoQuality
		if !c.opts.SurfaceModeChangeErrors {
			entry.Warn("re-analysis after mode change failed")
			return nil
		}
	}
	entry.Error("analysis failed")
	return c.showAlert(AlertError, analysisReason(msg.err))
}

func (c *Controller) handleLaunchResult(msg launchResultMsg) tea.Cmd {
	if c.state != model.StateLaunching {
		return nil
	}
	if msg.err != nil {
		c.setState(model.StateReady)
		c.log.WithFields(logrus.Fields{"url": msg.req.URL, "error": msg.err.Error()}).Error("launch failed")
		// A mode change made while the launch was in flight still needs its analysis.
		return tea.Batch(c.showAlert(AlertError, launchReason(msg.err)), c.reanalyzeIfStale())
	}

	c.setState(model.StateInProgress)
	c.jobID = msg.id
	c.jobURL = msg.req.URL
	c.jobTitle = ""
	if c.analysis != nil {
		c.jobTitle = c.analysis.Title
	}
	c.jobGen++
	c.outcome = nil
	c.progress = Progress{
		Visible: true,
		JobID:   msg.id,
		Percent: 0,
		Message: MsgStartingDownload,
	}
	c.log.WithFields(logrus.Fields{"job_id": msg.id, "url": msg.req.URL}).Info("download started")
	return tea.Batch(
		c.poller.Start(c.ctx, msg.id),
		c.showAlert(AlertSuccess, MsgLaunched),
	)
}

func (c *Controller) applyPollEvent(ev poller.Event) tea.Cmd {
	if ev.JobID != c.jobID {
		return nil
	}
	fields := logrus.Fields{"job_id": ev.JobID}

	switch ev.Kind {
	case poller.EventProgress:
		c.progress.Percent = ev.Percent
		c.progress.Message = ev.Message
		return nil

	case poller.EventPollError:
		c.log.WithFields(fields).WithField("error", errString(ev.Err)).Warn("status query failed")
		return nil

	case poller.EventCompleted:
		c.progress.Percent = ev.Percent
		c.progress.Message = ev.Message
		c.progress.Terminal = true
		c.outcome = &Outcome{
			JobID:    ev.JobID,
			URL:      c.jobURL,
			Title:    c.jobTitle,
			Status:   model.JobCompleted,
			Message:  ev.Message,
			FileName: ev.FileName,
		}
		c.log.WithFields(fields).Info("download completed")

		cmds := []tea.Cmd{c.showAlert(AlertSuccess, MsgCompleted), c.dismissAfter(c.jobGen)}
		if ev.FileHandle != "" && ev.FileName != "" && c.retriever != nil {
			cmds = append(cmds,
				c.showAlert(AlertSuccess, fmt.Sprintf("Saving %s to %s...", ev.FileName, c.outputDir())),
				c.retrieveCmd(*c.outcome, ev.FileHandle),
			)
		} else {
			c.outcome.Settled = true
			cmds = append(cmds, c.recordCmd(*c.outcome))
		}
		return tea.Batch(cmds...)

	case poller.EventFailed:
		c.progress.Percent = 0
		c.progress.Message = ev.Message
		c.progress.Terminal = true
		reason := ev.Reason
		if reason == "" {
			reason = MsgDownloadFailed
		}
		c.outcome = &Outcome{
			JobID:   ev.JobID,
			URL:     c.jobURL,
			Title:   c.jobTitle,
			Status:  model.JobFailed,
			Message: ev.Message,
			Err:     errors.New(reason),
			Settled: true,
		}
		c.log.WithFields(fields).WithField("error", reason).Error("download failed")
		return tea.Batch(c.showAlert(AlertError, reason), c.recordCmd(*c.outcome))
	}
	return nil
}

func (c *Controller) handleRetrieved(msg retrievedMsg) tea.Cmd {
	var cmd tea.Cmd
	fields := logrus.Fields{"job_id": msg.jobID, "file": msg.name}
	if msg.err != nil {
		c.log.WithFields(fields).WithField("error", msg.err.Error()).Error("file retrieval failed")
		cmd = c.showAlert(AlertError, fmt.Sprintf("Failed to save %s: %v", msg.name, msg.err))
	} else {
		c.log.WithFields(fields).WithField("path", msg.path).Info("file saved")
		cmd = c.showAlert(AlertSuccess, fmt.Sprintf("Saved %s", msg.path))
	}

	// The outcome travels with the message so the entry is recorded even when a newer
	// job has replaced the tracked one in the meantime.
	o := msg.outcome
	o.SavedPath = msg.path
	o.Err = msg.err
	o.Settled = true
	if c.outcome != nil && c.outcome.JobID == o.JobID {
		*c.outcome = o
	}
	return tea.Batch(cmd, c.recordCmd(o))
}

func (c *Controller) analyzeCmd(ctx context.Context, seq uint64, url string, audioOnly, silent bool) tea.Cmd {
	be := c.backend
	return func() tea.Msg {
		res, err := be.Analyze(ctx, url, audioOnly)
		return analyzeResultMsg{seq: seq, silent: silent, url: url, result: res, err: err}
	}
}

func (c *Controller) launchCmd(req model.LaunchRequest) tea.Cmd {
	ctx := c.ctx
	be := c.backend
	return func() tea.Msg {
		id, err := be.StartDownload(ctx, req)
		return launchResultMsg{req: req, id: id, err: err}
	}
}

func (c *Controller) retrieveCmd(o Outcome, handle string) tea.Cmd {
	ctx := c.ctx
	r := c.retriever
	return func() tea.Msg {
		path, err := r.Retrieve(ctx, handle, o.FileName)
		return retrievedMsg{jobID: o.JobID, name: o.FileName, path: path, err: err, outcome: o}
	}
}

func (c *Controller) dismissAfter(gen uint64) tea.Cmd {
	return tea.Tick(c.opts.DismissDelay, func(time.Time) tea.Msg {
		return dismissMsg{gen: gen}
	})
}

// recordCmd stores a settled outcome. Failures are logged and otherwise ignored.
func (c *Controller) recordCmd(o Outcome) tea.Cmd {
	if c.recorder == nil {
		c.markRecorded(o.JobID)
		return nil
	}
	entry := history.Entry{
		JobID:     string(o.JobID),
		URL:       o.URL,
		Title:     o.Title,
		Status:    string(o.Status),
		Message:   o.Message,
		FileName:  o.FileName,
		SavedPath: o.SavedPath,
	}
	if o.Err != nil && o.Status == model.JobCompleted {
		entry.Message = fmt.Sprintf("%s (save failed: %v)", o.Message, o.Err)
	}
	ctx := c.ctx
	rec := c.recorder
	log := c.log
	return func() tea.Msg {
		if _, err := rec.Record(ctx, entry); err != nil {
			log.WithFields(logrus.Fields{"job_id": entry.JobID, "error": err.Error()}).Warn("history write failed")
		}
		return recordedMsg{jobID: o.JobID}
	}
}

func (c *Controller) markRecorded(id model.JobID) {
	if c.outcome != nil && c.outcome.JobID == id {
		c.outcome.Recorded = true
	}
}

func (c *Controller) outputDir() string {
	if c.opts.OutputDir == "" {
		return "."
	}
	return c.opts.OutputDir
}

func analysisReason(err error) string {
	var aerr *backend.AnalysisError
	if errors.As(err, &aerr) && aerr.Reason != "" {
		return aerr.Reason
	}
	return backend.ReasonAnalyzeOffline
}

func launchReason(err error) string {
	var lerr *backend.LaunchError
	if errors.As(err, &lerr) && lerr.Reason != "" {
		return lerr.Reason
	}
	return backend.ReasonLaunchOffline
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
