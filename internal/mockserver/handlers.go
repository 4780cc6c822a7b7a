package mockserver

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"ytdl-remote/internal/sourceurl"
)

type job struct {
	id       string
	url      string
	title    string
	audio    bool
	zip      bool
	playlist string
	progress float64
	status   string
	message  string
	errText  string
	file     string
	fileName string
}

type quality struct {
	Label string `json:"label"`
	Size  string `json:"size"`
	Ext   string `json:"ext"`
}

var (
	videoQualities = []quality{
		{Label: "1080p", Size: "142.3 MB", Ext: "MP4"},
		{Label: "720p", Size: "71.9 MB", Ext: "MP4"},
		{Label: "480p", Size: "38.4 MB", Ext: "MP4"},
		{Label: "360p", Size: "Unknown", Ext: "WEBM"},
	}
	audioQualities = []quality{
		{Label: "Best", Size: "5.1 MB", Ext: "M4A"},
		{Label: "High", Size: "3.9 MB", Ext: "WEBM"},
		{Label: "Medium", Size: "2.2 MB", Ext: "WEBM"},
	}
)

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

func failure(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]any{"success": false, "error": msg})
}

func mockTitle(url string) string {
	if id, ok := sourceurl.PlaylistID(url); ok {
		return "Mock playlist " + id
	}
	u := strings.TrimRight(sourceurl.Normalize(url), "/")
	if i := strings.LastIndexAny(u, "/="); i >= 0 && i < len(u)-1 {
		return "Mock video " + u[i+1:]
	}
	return "Mock video"
}

func (s *Server) handleVideoInfo(c echo.Context) error {
	var req videoInfoRequest
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "invalid JSON body")
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		return failure(c, http.StatusBadRequest, "URL is required")
	}
	if !sourceurl.IsSupported(url) {
		return failure(c, http.StatusBadRequest, "Failed to fetch video information")
	}

	qualities := videoQualities
	if req.AudioOnly {
		qualities = audioQualities
	}
	playlistID, isPlaylist := sourceurl.PlaylistID(url)
	return c.JSON(http.StatusOK, map[string]any{
		"success":     true,
		"title":       mockTitle(url),
		"duration":    "3:45",
		"thumbnail":   "",
		"is_playlist": isPlaylist,
		"playlist_id": playlistID,
		"qualities":   qualities,
	})
}

func (s *Server) handleDownload(c echo.Context) error {
	var req downloadRequest
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "invalid JSON body")
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		return failure(c, http.StatusBadRequest, "URL is required")
	}

	playlistID, _ := sourceurl.PlaylistID(url)
	j := &job{
		id:       uuid.NewString(),
		url:      url,
		title:    mockTitle(url),
		audio:    req.AudioOnly,
		zip:      req.CreateZip && playlistID != "",
		playlist: playlistID,
		status:   "downloading",
		message:  "Starting download...",
	}
	if strings.Contains(strings.ToLower(url), FailMarker) {
		j.status = "error"
		j.errText = "Video unavailable"
	}

	s.mu.Lock()
	s.jobs[j.id] = j
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"job_id": j.id, "url": url, "format_id": req.FormatID}).Info("mock download started")
	return c.JSON(http.StatusOK, map[string]any{
		"success":     true,
		"download_id": j.id,
		"message":     "Download started",
	})
}

func (s *Server) handleStatus(c echo.Context) error {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return c.JSON(http.StatusOK, map[string]any{"status": "unknown", "message": "Download not found"})
	}

	if j.status == "downloading" {
		s.advance(j)
	}

	switch j.status {
	case "error":
		return c.JSON(http.StatusOK, map[string]any{"status": "error", "error": j.errText})
	case "completed":
		return c.JSON(http.StatusOK, map[string]any{
			"status":            "completed",
			"progress":          100,
			"message":           j.message,
			"download_file":     j.file,
			"download_filename": j.fileName,
		})
	default:
		return c.JSON(http.StatusOK, map[string]any{
			"status":   "downloading",
			"progress": j.progress,
			"message":  j.message,
		})
	}
}

// advance moves j one step forward. Caller holds s.mu.
func (s *Server) advance(j *job) {
	j.progress += s.step
	if j.progress < 90 {
		j.message = fmt.Sprintf("Downloading: %.0f%%", j.progress)
		return
	}

	name := j.title + ".mp4"
	if j.audio {
		name = j.title + ".m4a"
	}
	if j.zip {
		name = "playlist_" + j.playlist + ".zip"
	}
	path := filepath.Join(s.dir, j.id+"-"+name)
	content := fmt.Sprintf("mock media for %s\n", j.url)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		j.status = "error"
		j.errText = err.Error()
		return
	}
	j.status = "completed"
	j.progress = 100
	j.message = "Download completed: " + name
	j.file = path
	j.fileName = name
}

func (s *Server) handleFile(c echo.Context) error {
	file := c.QueryParam("file")
	if file == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "File path is required"})
	}
	clean := filepath.Clean(file)
	rel, err := filepath.Rel(s.dir, clean)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Invalid file path"})
	}
	if _, err := os.Stat(clean); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "File not found"})
	}
	return c.Attachment(clean, filepath.Base(clean))
}
