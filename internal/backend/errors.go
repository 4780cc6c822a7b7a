package backend

import (
	"fmt"

	"ytdl-remote/internal/model"
)

const (
	ReasonAnalyzeFailed  = "Failed to fetch video information"
	ReasonAnalyzeOffline = "Error connecting to server. Make sure the backend is running."
	ReasonLaunchFailed   = "Failed to start download"
	ReasonLaunchOffline  = "Error connecting to server"
)

// AnalysisError is returned by Analyze for both backend rejections and transport failures.
type AnalysisError struct {
	Reason    string
	Transport bool
	Err       error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analyze: %s: %v", e.Reason, e.Err)
	}
	return "analyze: " + e.Reason
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// LaunchError is returned by StartDownload. No retry is attempted on either kind.
type LaunchError struct {
	Reason    string
	Transport bool
	Err       error
}

func (e *LaunchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("start download: %s: %v", e.Reason, e.Err)
	}
	return "start download: " + e.Reason
}

func (e *LaunchError) Unwrap() error { return e.Err }

// PollTransportError is a single failed status query. Callers treat it as non-fatal.
type PollTransportError struct {
	JobID model.JobID
	Err   error
}

func (e *PollTransportError) Error() string {
	return fmt.Sprintf("poll status %s: %v", e.JobID, e.Err)
}

func (e *PollTransportError) Unwrap() error { return e.Err }

type RetrieveError struct {
	Handle string
	Err    error
}

func (e *RetrieveError) Error() string {
	return fmt.Sprintf("retrieve %s: %v", e.Handle, e.Err)
}

func (e *RetrieveError) Unwrap() error { return e.Err }
