package model

import "fmt"

// AutoQuality is the synthetic quality index that lets the backend pick the best format.
const AutoQuality = 0

type JobID string

type QualityOption struct {
	Label     string `json:"label"`
	SizeText  string `json:"size"`
	Extension string `json:"ext"`
}

func (q QualityOption) String() string {
	return fmt.Sprintf("%s - %s (%s)", q.Label, q.SizeText, q.Extension)
}

// AnalysisResult is replaced wholesale on every analysis; quality positions are 1-based
// identifiers that are only valid against the result they came from.
type AnalysisResult struct {
	URL          string          `json:"url"`
	AudioOnly    bool            `json:"audio_only"`
	Title        string          `json:"title"`
	DurationText string          `json:"duration"`
	ThumbnailURL string          `json:"thumbnail,omitempty"`
	IsPlaylist   bool            `json:"is_playlist"`
	Qualities    []QualityOption `json:"qualities"`
}

func (a AnalysisResult) ValidQuality(index int) bool {
	return index == AutoQuality || (index >= 1 && index <= len(a.Qualities))
}

// QualityLabel renders the option shown for index, with index 0 as the auto entry.
func (a AnalysisResult) QualityLabel(index int) string {
	if index == AutoQuality || index > len(a.Qualities) || index < 0 {
		return "Auto (Best Available)"
	}
	return a.Qualities[index-1].String()
}

type LaunchRequest struct {
	URL          string
	QualityIndex int
	AudioOnly    bool
	CreateZip    bool
}

// FormatID is the wire form of the quality selection: "auto" or the 1-based index.
func (r LaunchRequest) FormatID() string {
	if r.QualityIndex <= AutoQuality {
		return "auto"
	}
	return fmt.Sprintf("%d", r.QualityIndex)
}

type JobStatusKind string

const (
	JobDownloading JobStatusKind = "downloading"
	JobCompleted   JobStatusKind = "completed"
	JobFailed      JobStatusKind = "error"
)

// JobStatus is one polled snapshot of a backend job. Kind values outside the known set are
// carried through untouched so callers can ignore them.
type JobStatus struct {
	Kind       JobStatusKind `json:"status"`
	Progress   float64       `json:"progress"`
	HasPercent bool          `json:"-"`
	Message    string        `json:"message,omitempty"`
	FileHandle string        `json:"download_file,omitempty"`
	FileName   string        `json:"download_filename,omitempty"`
	Error      string        `json:"error,omitempty"`
}

func (s JobStatus) HasFile() bool {
	return s.FileHandle != "" && s.FileName != ""
}
