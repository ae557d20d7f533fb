package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		call    func(*Config) error
		missing []string
	}{
		{
			name: "upload url",
			env:  map[string]string{},
			call: func(c *Config) error {
				_, err := c.UploadURL()
				return err
			},
			missing: []string{EnvUploadURL},
		},
		{
			name: "username",
			env:  map[string]string{EnvPassword: "secret"},
			call: func(c *Config) error {
				_, _, err := c.Credentials()
				return err
			},
			missing: []string{EnvUsername},
		},
		{
			name: "password",
			env:  map[string]string{EnvUsername: "reader@example.org"},
			call: func(c *Config) error {
				_, _, err := c.Credentials()
				return err
			},
			missing: []string{EnvPassword},
		},
		{
			name: "both credentials",
			env:  map[string]string{},
			call: func(c *Config) error {
				_, _, err := c.Credentials()
				return err
			},
			missing: []string{EnvUsername, EnvPassword},
		},
		{
			name: "session token",
			env:  map[string]string{EnvUsername: "reader@example.org"},
			call: func(c *Config) error {
				_, err := c.SessionToken()
				return err
			},
			missing: []string{EnvSessionToken},
		},
		{
			name: "blank value counts as missing",
			env:  map[string]string{EnvSessionToken: "   "},
			call: func(c *Config) error {
				_, err := c.SessionToken()
				return err
			},
			missing: []string{EnvSessionToken},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default().WithEnv(MapLookup(tt.env))
			err := tt.call(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingConfig)

			var missingErr *MissingEnvError
			require.True(t, errors.As(err, &missingErr))
			assert.Equal(t, tt.missing, missingErr.Vars)
			for _, name := range tt.missing {
				assert.Contains(t, err.Error(), name)
			}
		})
	}
}

func TestPresentEnvironment(t *testing.T) {
	cfg := Default().WithEnv(MapLookup(map[string]string{
		EnvUploadURL:    "http://tolino.local/upload",
		EnvUsername:     "reader@example.org",
		EnvPassword:     "secret",
		EnvSessionToken: "tok-123",
	}))

	url, err := cfg.UploadURL()
	require.NoError(t, err)
	assert.Equal(t, "http://tolino.local/upload", url)

	user, pass, err := cfg.Credentials()
	require.NoError(t, err)
	assert.Equal(t, "reader@example.org", user)
	assert.Equal(t, "secret", pass)

	token, err := cfg.SessionToken()
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)

	assert.True(t, cfg.HasSessionToken())
	assert.True(t, cfg.HasCredentials())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, LoadDotEnv("", false))
	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "absent.env"), true))
	assert.Error(t, LoadDotEnv(filepath.Join(dir, "absent.env"), false))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("EDITIONFETCH_TEST_VAR=from-file\n"), 0600))
	t.Setenv("EDITIONFETCH_TEST_VAR", "")
	os.Unsetenv("EDITIONFETCH_TEST_VAR")

	require.NoError(t, LoadDotEnv(path, false))
	assert.Equal(t, "from-file", os.Getenv("EDITIONFETCH_TEST_VAR"))
}
