package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEdition(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "die_zeit_2026_43.epub")
	require.NoError(t, os.WriteFile(path, []byte("PK epub bytes"), 0600))
	return path
}

// receiver answers every request with status and body, and records the
// uploaded file.
type receiver struct {
	status   int
	body     string
	filename string
	content  []byte
}

func (r *receiver) serve(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPost, req.Method)
		file, header, err := req.FormFile(FieldName)
		if assert.NoError(t, err) {
			r.filename = header.Filename
			r.content, _ = io.ReadAll(file)
			file.Close()
		}
		w.WriteHeader(r.status)
		_, _ = io.WriteString(w, r.body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestUpload_Success(t *testing.T) {
	recv := &receiver{status: http.StatusOK, body: `{"filename":"x.epub","size":13}`}
	server := recv.serve(t)

	res, err := New(server.URL).Upload(context.Background(), writeEdition(t))
	require.NoError(t, err)

	assert.Equal(t, "x.epub", res.Filename)
	assert.Equal(t, float64(13), res.Fields["size"])
	assert.Equal(t, "die_zeit_2026_43.epub", recv.filename)
	assert.Equal(t, []byte("PK epub bytes"), recv.content)
}

func TestUpload_ServerError(t *testing.T) {
	recv := &receiver{status: http.StatusInternalServerError, body: "disk full"}
	server := recv.serve(t)

	res, err := New(server.URL).Upload(context.Background(), writeEdition(t))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrUploadFailed))

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	assert.Equal(t, "disk full", statusErr.Body)
}

func TestUpload_LongErrorBodyKeepsRunes(t *testing.T) {
	// one byte of padding puts every two-byte rune across the cut
	recv := &receiver{status: http.StatusBadGateway, body: "x" + strings.Repeat("ä", maxErrorBody)}
	server := recv.serve(t)

	_, err := New(server.URL).Upload(context.Background(), writeEdition(t))
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.True(t, utf8.ValidString(statusErr.Body))
	assert.Equal(t, maxErrorBody-1, len(statusErr.Body))
}

func TestUpload_MalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "ok"},
		{name: "no filename", body: `{"status":"stored"}`},
		{name: "filename not a string", body: `{"filename":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recv := &receiver{status: http.StatusOK, body: tt.body}
			server := recv.serve(t)

			_, err := New(server.URL).Upload(context.Background(), writeEdition(t))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedResponse))
		})
	}
}

func TestUpload_MissingFile(t *testing.T) {
	_, err := New("http://127.0.0.1:0").Upload(context.Background(), filepath.Join(t.TempDir(), "absent.epub"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestUpload_UnreachableReceiver(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := New(url).Upload(context.Background(), writeEdition(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUploadFailed))
}
