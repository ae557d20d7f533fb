package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelQuiet, ParseLevel("quiet"))
	assert.Equal(t, LevelNormal, ParseLevel("normal"))
	assert.Equal(t, LevelVerbose, ParseLevel("VERBOSE"))
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelNormal, ParseLevel("whatever"))
}

func TestLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "edition", LevelNormal)

	log.Infof("clicking %q", "download")

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, "[edition] [INFO] clicking \"download\"")
	assert.True(t, strings.HasPrefix(line, "["))
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level Level
		want  []string
		skip  []string
	}{
		{level: LevelQuiet, want: []string{"warn", "error"}, skip: []string{"info", "verbose", "debug"}},
		{level: LevelNormal, want: []string{"info", "warn", "error"}, skip: []string{"verbose", "debug"}},
		{level: LevelVerbose, want: []string{"info", "verbose"}, skip: []string{"debug"}},
		{level: LevelDebug, want: []string{"info", "verbose", "debug"}},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		log := New(&buf, "test", tt.level)
		log.Debugf("debug")
		log.Verbosef("verbose")
		log.Infof("info")
		log.Warnf("warn")
		log.Errorf("error")

		out := buf.String()
		for _, w := range tt.want {
			assert.Contains(t, out, "] "+w+"\n", "level %d should show %s", tt.level, w)
		}
		for _, s := range tt.skip {
			assert.NotContains(t, out, "] "+s+"\n", "level %d should hide %s", tt.level, s)
		}
	}
}

func TestLogger_NamedSharesSink(t *testing.T) {
	var buf bytes.Buffer
	root := New(&buf, "root", LevelDebug)
	child := root.Named("upload")

	root.Infof("one")
	child.Infof("two")

	out := buf.String()
	assert.Contains(t, out, "[root] [INFO] one")
	assert.Contains(t, out, "[upload] [INFO] two")
	assert.Equal(t, LevelDebug, child.Level())
}

func TestRunIDStable(t *testing.T) {
	id := RunID()
	require.NotEmpty(t, id)
	assert.Equal(t, id, RunID())
}

func TestDiscard(t *testing.T) {
	log := Discard()
	log.Errorf("dropped")
	assert.Empty(t, log.LogPath())
	assert.NoError(t, log.Close())
	assert.NoError(t, log.Close())
}

func TestNewWithFile_WritesToWriterAndFile(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	var buf bytes.Buffer
	log, err := NewWithFile(&buf, "edition-fetch", LevelNormal)
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	log.Infof("run started")

	assert.Contains(t, buf.String(), "[edition-fetch] [INFO] run started")
	require.NotEmpty(t, log.LogPath())
	assert.Equal(t, RunID()+"-edition-fetch.log", filepath.Base(log.LogPath()))

	content, err := os.ReadFile(log.LogPath())
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(content))
}
