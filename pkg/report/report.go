// Package report writes the outcome of one run as machine- and
// human-readable files.
package report

import (
	"context"
	"errors"
	"time"

	"github.com/entrhq/editionfetch/pkg/config"
	"github.com/entrhq/editionfetch/pkg/decoy"
	"github.com/entrhq/editionfetch/pkg/edition"
	"github.com/entrhq/editionfetch/pkg/upload"
)

// Status is the overall result of a run.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusNotReady Status = "not_ready"
	StatusFailed   Status = "failed"
)

// Error kinds recorded in a Summary.
const (
	KindConfig          = "configuration"
	KindNotReady        = "edition_not_ready"
	KindLogin           = "login_failure"
	KindDownloadTimeout = "download_timeout"
	KindMissingArtifact = "missing_artifact"
	KindUpload          = "upload_failure"
	KindCancelled       = "cancelled"
	KindOther           = "other"
)

// Classify maps an error to one of the Kind constants, "" for nil.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, config.ErrMissingConfig):
		return KindConfig
	case errors.Is(err, edition.ErrEditionNotReady):
		return KindNotReady
	case errors.Is(err, edition.ErrLoginFailed):
		return KindLogin
	case errors.Is(err, edition.ErrDownloadTimeout):
		return KindDownloadTimeout
	case errors.Is(err, edition.ErrMissingArtifact), errors.Is(err, edition.ErrLinkNotFound):
		return KindMissingArtifact
	case errors.Is(err, upload.ErrUploadFailed), errors.Is(err, upload.ErrMalformedResponse):
		return KindUpload
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindOther
	}
}

// Summary contains a complete summary of one run
type Summary struct {
	RunID     string            `json:"run_id"`
	Command   string            `json:"command"`
	Status    Status            `json:"status"`
	Error     string            `json:"error,omitempty"`
	ErrorKind string            `json:"error_kind,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time"`
	Duration  time.Duration     `json:"duration"`
	Attempts  int               `json:"attempts"`
	Strategy  string            `json:"strategy,omitempty"`
	Decoy     []decoy.Step      `json:"decoy,omitempty"`
	Artifact  *edition.Artifact `json:"artifact,omitempty"`
	Upload    *UploadInfo       `json:"upload,omitempty"`
}

// UploadInfo describes the handoff to the receiver.
type UploadInfo struct {
	Filename string `json:"filename"`
}

// New starts a summary for command.
func New(runID, command string) *Summary {
	return &Summary{
		RunID:     runID,
		Command:   command,
		StartTime: time.Now(),
	}
}

// Finish records the end of the run and derives status and error kind
// from err.
func (s *Summary) Finish(err error) {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
	s.ErrorKind = Classify(err)

	switch {
	case err == nil:
		s.Status = StatusSuccess
	case errors.Is(err, edition.ErrEditionNotReady):
		s.Status = StatusNotReady
		s.Error = err.Error()
	default:
		s.Status = StatusFailed
		s.Error = err.Error()
	}
}

// RecordFetch copies the fetch result into the summary. res may be nil.
func (s *Summary) RecordFetch(res *edition.Result) {
	if res == nil {
		return
	}
	s.Strategy = res.Strategy
	s.Decoy = res.Decoy.Steps
	if res.Artifact.Path != "" {
		artifact := res.Artifact
		s.Artifact = &artifact
	}
}
