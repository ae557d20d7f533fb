package edition

import (
	"errors"
	"fmt"
)

var (
	// ErrEditionNotReady means the site shows the pending marker: the EPUB
	// of today's edition has not been published yet. Callers may retry later.
	ErrEditionNotReady = errors.New("edition not ready: EPUB not yet available")

	// ErrLoginFailed is matched by every LoginError.
	ErrLoginFailed = errors.New("login failed")

	// ErrDownloadTimeout means partial files were still present when the
	// completion window elapsed.
	ErrDownloadTimeout = errors.New("download did not complete in time")

	// ErrMissingArtifact means no usable file was found after the download,
	// including when the click never started one.
	ErrMissingArtifact = errors.New("downloaded artifact not found")

	// ErrLinkNotFound means no link with the expected visible text exists.
	ErrLinkNotFound = errors.New("link not found")
)

// LoginError describes why a session could not be established.
type LoginError struct {
	Reason string
	Err    error
}

func (e *LoginError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("login failed: %s: %v", e.Reason, e.Err)
	}
	return "login failed: " + e.Reason
}

// Is makes errors.Is(err, ErrLoginFailed) hold.
func (e *LoginError) Is(target error) bool {
	return target == ErrLoginFailed
}

func (e *LoginError) Unwrap() error {
	return e.Err
}
