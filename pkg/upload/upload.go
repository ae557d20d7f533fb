// Package upload hands a downloaded edition to the HTTP receiver.
//
// The receiver accepts a multipart POST with the file in the "epub" field
// and answers 200 with a JSON object naming the stored file. Anything else
// is a failure; there are no retries.
package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"github.com/entrhq/editionfetch/pkg/logging"
	"github.com/entrhq/editionfetch/pkg/telemetry"
)

const tracerName = "github.com/entrhq/editionfetch/pkg/upload"

// FieldName is the multipart field carrying the file.
const FieldName = "epub"

// DefaultTimeout bounds one upload when no timeout is configured.
const DefaultTimeout = 2 * time.Minute

// maxErrorBody bounds the response body kept in a StatusError.
const maxErrorBody = 4096

var (
	// ErrUploadFailed is matched by every failed upload.
	ErrUploadFailed = errors.New("upload failed")

	// ErrMalformedResponse means the receiver answered 200 without a
	// usable filename.
	ErrMalformedResponse = errors.New("malformed upload response")
)

// StatusError is returned when the receiver answers with a status other
// than 200.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upload failed with status %d: %s", e.Code, e.Body)
}

// Is makes errors.Is(err, ErrUploadFailed) hold.
func (e *StatusError) Is(target error) bool {
	return target == ErrUploadFailed
}

// Result is the receiver's answer to a successful upload.
type Result struct {
	// Filename is the name the receiver stored the file under
	Filename string `json:"filename"`

	// Fields holds the whole decoded response
	Fields map[string]interface{} `json:"-"`
}

// Client uploads files to one receiver URL.
type Client struct {
	url  string
	http *resty.Client
	log  *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each upload.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a client for the receiver at url.
func New(url string, opts ...Option) *Client {
	client := resty.New()
	client.SetTimeout(DefaultTimeout)
	client.SetRetryCount(0)

	telemetry.InstrumentResty(client, tracerName)

	c := &Client{url: url, http: client, log: logging.Discard()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload posts the file at path. A missing file yields an error matching
// os.ErrNotExist; every receiver-side failure matches ErrUploadFailed or
// ErrMalformedResponse.
func (c *Client) Upload(ctx context.Context, path string) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	name := filepath.Base(path)
	c.log.Infof("uploading %s to %s", name, c.url)

	res, err := c.http.R().
		SetContext(ctx).
		SetFileReader(FieldName, name, file).
		Post(c.url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	if res.StatusCode() != 200 {
		body := truncate(strings.TrimSpace(res.String()), maxErrorBody)
		c.log.Errorf("receiver answered %d", res.StatusCode())
		return nil, &StatusError{Code: res.StatusCode(), Body: body}
	}

	result, err := parseResult(res.Body())
	if err != nil {
		return nil, err
	}
	c.log.Infof("upload successful: %s", result.Filename)
	return result, nil
}

func parseResult(body []byte) (*Result, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	filename, _ := fields["filename"].(string)
	if filename == "" {
		return nil, fmt.Errorf("%w: no filename in %s", ErrMalformedResponse, body)
	}
	return &Result{Filename: filename, Fields: fields}, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
