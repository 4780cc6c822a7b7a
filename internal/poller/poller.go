// Package poller tracks one backend job by querying its status on a fixed period.
//
// The period is a delay, not a rate: the next tick is scheduled only once the previous
// status result has been handled, so at most one query is in flight per run and a slow
// backend stretches the gap between queries to interval plus request time.
//
// A Poller is driven by a bubbletea event loop: Start and Update hand back commands, and
// every message they produce carries the run token of the Start call that scheduled it.
// Stopping or restarting bumps the token, so a tick or status result from an earlier run
// is dropped instead of reaching the caller.
package poller

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"ytdl-remote/internal/model"
)

const (
	DefaultInterval = time.Second

	defaultDownloadingMessage = "Downloading..."
	defaultCompletedMessage   = "Download completed!"
	defaultFailureReason      = "Unknown error"
	timeoutReason             = "polling timed out"
)

type StatusFetcher interface {
	Status(ctx context.Context, id model.JobID) (model.JobStatus, error)
}

type State int

const (
	StateIdle State = iota
	StateActive
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type TickMsg struct {
	Run uint64
}

type ResultMsg struct {
	Run    uint64
	JobID  model.JobID
	Status model.JobStatus
	Err    error
}

type EventKind int

const (
	EventNone EventKind = iota
	EventProgress
	EventCompleted
	EventFailed
	EventPollError
)

// Event is what a handled message means for the progress view. Reason is the backend's
// failure text as reported and may be empty; Message is always ready for display.
type Event struct {
	Kind       EventKind
	JobID      model.JobID
	Percent    float64
	Message    string
	Reason     string
	FileHandle string
	FileName   string
	Err        error
}

type Options struct {
	Interval time.Duration
	// MaxDuration stops polling and reports a failure once exceeded. Zero polls forever.
	MaxDuration time.Duration
	Now         func() time.Time
}

type Poller struct {
	fetcher     StatusFetcher
	interval    time.Duration
	maxDuration time.Duration
	now         func() time.Time

	state     State
	run       uint64
	jobID     model.JobID
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
}

func New(fetcher StatusFetcher, opts Options) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	maxDuration := opts.MaxDuration
	if maxDuration < 0 {
		maxDuration = 0
	}
	return &Poller{
		fetcher:     fetcher,
		interval:    interval,
		maxDuration: maxDuration,
		now:         now,
		state:       StateIdle,
	}
}

func (p *Poller) State() State { return p.state }
func (p *Poller) Active() bool { return p.state == StateActive }
func (p *Poller) JobID() model.JobID { return p.jobID }
func (p *Poller) Run() uint64 { return p.run }

// Start tracks id, stopping any run already in progress first. The returned command
// delivers the first tick one interval from now.
func (p *Poller) Start(parent context.Context, id model.JobID) tea.Cmd {
	p.Stop()
	if parent == nil {
		parent = context.Background()
	}
	p.run++
	p.jobID = id
	p.state = StateActive
	p.startedAt = p.now()
	p.ctx, p.cancel = context.WithCancel(parent)
	return p.tick(p.run)
}

// Stop cancels the schedule and any status query in flight. Stopping a poller that is
// not active does nothing.
func (p *Poller) Stop() {
	if p.state != StateActive {
		return
	}
	p.finish()
}

func (p *Poller) finish() {
	p.state = StateStopped
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = nil
}

// Owns reports whether run is the current, still-active run.
func (p *Poller) Owns(run uint64) bool {
	return p.state == StateActive && run == p.run
}

// Update handles TickMsg and ResultMsg. handled is false for any other message.
// Messages from stale runs are consumed and produce neither an event nor a command.
func (p *Poller) Update(msg tea.Msg) (ev Event, cmd tea.Cmd, handled bool) {
	switch msg := msg.(type) {
	case TickMsg:
		if !p.Owns(msg.Run) {
			return Event{}, nil, true
		}
		if p.maxDuration > 0 && p.now().Sub(p.startedAt) >= p.maxDuration {
			id := p.jobID
			p.finish()
			reason := fmt.Sprintf("%s after %s", timeoutReason, p.maxDuration)
			return Event{Kind: EventFailed, JobID: id, Reason: reason, Message: "Error: " + reason}, nil, true
		}
		return Event{}, p.fetch(msg.Run, p.jobID), true
	case ResultMsg:
		if !p.Owns(msg.Run) || msg.JobID != p.jobID {
			return Event{}, nil, true
		}
		ev, cmd := p.handleResult(msg)
		return ev, cmd, true
	}
	return Event{}, nil, false
}

func (p *Poller) handleResult(msg ResultMsg) (Event, tea.Cmd) {
	if msg.Err != nil {
		return Event{Kind: EventPollError, JobID: msg.JobID, Err: msg.Err}, p.tick(msg.Run)
	}

	st := msg.Status
	switch st.Kind {
	case model.JobDownloading:
		pct := 0.0
		if st.HasPercent {
			pct = clampPercent(st.Progress)
		}
		return Event{
			Kind:    EventProgress,
			JobID:   msg.JobID,
			Percent: pct,
			Message: orDefault(st.Message, defaultDownloadingMessage),
		}, p.tick(msg.Run)
	case model.JobCompleted:
		p.finish()
		ev := Event{
			Kind:    EventCompleted,
			JobID:   msg.JobID,
			Percent: 100,
			Message: orDefault(st.Message, defaultCompletedMessage),
		}
		if st.HasFile() {
			ev.FileHandle = st.FileHandle
			ev.FileName = st.FileName
		}
		return ev, nil
	case model.JobFailed:
		p.finish()
		return Event{
			Kind:    EventFailed,
			JobID:   msg.JobID,
			Percent: 0,
			Reason:  st.Error,
			Message: "Error: " + orDefault(st.Error, defaultFailureReason),
		}, nil
	default:
		return Event{Kind: EventNone, JobID: msg.JobID}, p.tick(msg.Run)
	}
}

func (p *Poller) tick(run uint64) tea.Cmd {
	return tea.Tick(p.interval, func(time.Time) tea.Msg {
		return TickMsg{Run: run}
	})
}

func (p *Poller) fetch(run uint64, id model.JobID) tea.Cmd {
	ctx := p.ctx
	fetcher := p.fetcher
	return func() tea.Msg {
		st, err := fetcher.Status(ctx, id)
		return ResultMsg{Run: run, JobID: id, Status: st, Err: err}
	}
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
