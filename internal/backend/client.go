package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"ytdl-remote/internal/model"
)

const (
	DefaultLocalBaseURL = "http://localhost:5000/api"
	DefaultTimeout      = 30 * time.Second

	maxResponseBytes = 4 << 20
	userAgent        = "ytdl-remote"
)

var localHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
}

// ResolveBaseURL maps the configured server origin to the API base. Local development
// hosts always resolve to the fixed local backend; anything else is served under /api.
func ResolveBaseURL(origin string) (string, error) {
	raw := strings.TrimSpace(origin)
	if raw == "" {
		return DefaultLocalBaseURL, nil
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse server origin %q: %w", origin, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server origin %q has no host", origin)
	}
	if localHosts[strings.ToLower(u.Hostname())] {
		return DefaultLocalBaseURL, nil
	}
	return u.Scheme + "://" + u.Host + "/api", nil
}

// Client talks to the download backend. JSON calls are bounded by the client timeout.
// File retrieval is bounded only by its context and by the wait for response headers.
type Client struct {
	baseURL string
	http    *http.Client
	files   *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout, Transport: transport})
}

// NewWithHTTPClient uses hc for every call. Retrieval runs on a copy of hc with the
// overall timeout removed.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	files := *hc
	files.Timeout = 0
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    hc,
		files:   &files,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type videoInfoRequest struct {
	URL       string `json:"url"`
	AudioOnly bool   `json:"audio_only"`
}

type downloadRequest struct {
	URL       string `json:"url"`
	FormatID  string `json:"format_id"`
	AudioOnly bool   `json:"audio_only"`
	CreateZip bool   `json:"create_zip"`
}

// Analyze asks the backend for metadata and the ordered quality list. Every failure comes
// back as *AnalysisError.
func (c *Client) Analyze(ctx context.Context, rawURL string, audioOnly bool) (model.AnalysisResult, error) {
	body, err := c.postJSON(ctx, "/video-info", videoInfoRequest{URL: rawURL, AudioOnly: audioOnly})
	if err != nil {
		return model.AnalysisResult{}, &AnalysisError{Reason: ReasonAnalyzeOffline, Transport: true, Err: err}
	}
	if !gjson.GetBytes(body, "success").Bool() {
		return model.AnalysisResult{}, &AnalysisError{Reason: reasonOr(body, ReasonAnalyzeFailed)}
	}

	res := model.AnalysisResult{
		URL:          rawURL,
		AudioOnly:    audioOnly,
		Title:        gjson.GetBytes(body, "title").String(),
		DurationText: gjson.GetBytes(body, "duration").String(),
		ThumbnailURL: gjson.GetBytes(body, "thumbnail").String(),
		IsPlaylist:   gjson.GetBytes(body, "is_playlist").Bool(),
		Qualities:    []model.QualityOption{},
	}
	gjson.GetBytes(body, "qualities").ForEach(func(_, q gjson.Result) bool {
		size := q.Get("size").String()
		if size == "" {
			size = "Unknown"
		}
		res.Qualities = append(res.Qualities, model.QualityOption{
			Label:     q.Get("label").String(),
			SizeText:  size,
			Extension: q.Get("ext").String(),
		})
		return true
	})
	return res, nil
}

// StartDownload launches a backend job. CreateZip must already be forced false by the
// caller for non-playlist analyses; the quality index is forwarded untouched.
func (c *Client) StartDownload(ctx context.Context, req model.LaunchRequest) (model.JobID, error) {
	body, err := c.postJSON(ctx, "/download", downloadRequest{
		URL:       req.URL,
		FormatID:  req.FormatID(),
		AudioOnly: req.AudioOnly,
		CreateZip: req.CreateZip,
	})
	if err != nil {
		return "", &LaunchError{Reason: ReasonLaunchOffline, Transport: true, Err: err}
	}
	if !gjson.GetBytes(body, "success").Bool() {
		return "", &LaunchError{Reason: reasonOr(body, ReasonLaunchFailed)}
	}
	id := strings.TrimSpace(gjson.GetBytes(body, "download_id").String())
	if id == "" {
		return "", &LaunchError{Reason: ReasonLaunchFailed, Err: errors.New("response did not include download_id")}
	}
	return model.JobID(id), nil
}

// Status performs one status query. Failures are *PollTransportError.
func (c *Client) Status(ctx context.Context, id model.JobID) (model.JobStatus, error) {
	endpoint := c.baseURL + "/download-status/" + url.PathEscape(string(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.JobStatus{}, &PollTransportError{JobID: id, Err: err}
	}
	body, err := c.do(req)
	if err != nil {
		return model.JobStatus{}, &PollTransportError{JobID: id, Err: err}
	}

	st := model.JobStatus{
		Kind:       model.JobStatusKind(gjson.GetBytes(body, "status").String()),
		Message:    gjson.GetBytes(body, "message").String(),
		FileHandle: gjson.GetBytes(body, "download_file").String(),
		FileName:   gjson.GetBytes(body, "download_filename").String(),
		Error:      gjson.GetBytes(body, "error").String(),
	}
	if p := gjson.GetBytes(body, "progress"); p.Exists() && p.Type != gjson.Null {
		st.Progress = p.Float()
		st.HasPercent = true
	}
	return st, nil
}

// FileURL is the retrieval endpoint for a completed job's file handle.
func (c *Client) FileURL(handle string) string {
	return c.baseURL + "/download-file?file=" + url.QueryEscape(handle)
}

// Retrieve streams the file behind handle into w and returns the number of bytes copied.
func (c *Client) Retrieve(ctx context.Context, handle string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.FileURL(handle), nil)
	if err != nil {
		return 0, &RetrieveError{Handle: handle, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.files.Do(req)
	if err != nil {
		return 0, &RetrieveError{Handle: handle, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := gjson.GetBytes(data, "error").String()
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return 0, &RetrieveError{Handle: handle, Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)}
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &RetrieveError{Handle: handle, Err: err}
	}
	return n, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request for %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// do sends req and returns a body that is guaranteed to be valid JSON. Non-2xx answers
// are accepted when they carry JSON, since the backend reports rejections that way.
func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return nil, fmt.Errorf("malformed response (%d): %s", resp.StatusCode, truncate(strings.TrimSpace(string(body)), 200))
	}
	return body, nil
}

func reasonOr(body []byte, fallback string) string {
	if msg := strings.TrimSpace(gjson.GetBytes(body, "error").String()); msg != "" {
		return msg
	}
	return fallback
}

// truncate cuts s to at most max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
