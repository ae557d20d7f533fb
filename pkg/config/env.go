package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables carrying secrets.
const (
	EnvUploadURL    = "CUSTOM_URL"
	EnvUsername     = "ZEIT_PREMIUM_USER"
	EnvPassword     = "ZEIT_PREMIUM_PASSWORD"
	EnvSessionToken = "ZEIT_SSO_TOKEN"
)

// ErrMissingConfig is matched by every MissingEnvError.
var ErrMissingConfig = errors.New("missing required configuration")

// Lookup resolves an environment variable; os.LookupEnv satisfies it.
type Lookup func(key string) (string, bool)

// MapLookup resolves variables from a fixed map.
func MapLookup(values map[string]string) Lookup {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

// MissingEnvError names the environment variables a code path needed but
// could not find.
type MissingEnvError struct {
	Vars []string
	Hint string
}

func (e *MissingEnvError) Error() string {
	msg := fmt.Sprintf("missing environment variable(s) %s", strings.Join(quoted(e.Vars), ", "))
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	return msg
}

// Is makes errors.Is(err, ErrMissingConfig) hold.
func (e *MissingEnvError) Is(target error) bool {
	return target == ErrMissingConfig
}

func quoted(vars []string) []string {
	out := make([]string, len(vars))
	for i, v := range vars {
		out[i] = "'" + v + "'"
	}
	return out
}

// LoadDotEnv loads variables from a dotenv file into the process
// environment. Variables already set are left untouched. A missing file is
// not an error when optional is true.
func LoadDotEnv(path string, optional bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func (c *Config) lookup(key string) (string, bool) {
	env := c.env
	if env == nil {
		env = os.LookupEnv
	}
	v, ok := env(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// UploadURL returns the receiver URL.
func (c *Config) UploadURL() (string, error) {
	url, ok := c.lookup(EnvUploadURL)
	if !ok {
		return "", &MissingEnvError{
			Vars: []string{EnvUploadURL},
			Hint: "export the upload receiver URL",
		}
	}
	return url, nil
}

// Credentials returns the login username and password. Every missing
// variable is named in the error.
func (c *Config) Credentials() (username, password string, err error) {
	username, okUser := c.lookup(EnvUsername)
	password, okPass := c.lookup(EnvPassword)

	var missing []string
	if !okUser {
		missing = append(missing, EnvUsername)
	}
	if !okPass {
		missing = append(missing, EnvPassword)
	}
	if len(missing) > 0 {
		return "", "", &MissingEnvError{
			Vars: missing,
			Hint: "export your username and password (for CI, use repository secrets)",
		}
	}
	return username, password, nil
}

// SessionToken returns the pre-issued session token.
func (c *Config) SessionToken() (string, error) {
	token, ok := c.lookup(EnvSessionToken)
	if !ok {
		return "", &MissingEnvError{
			Vars: []string{EnvSessionToken},
			Hint: "export a session token copied from a logged-in browser",
		}
	}
	return token, nil
}

// HasSessionToken reports whether a session token is available.
func (c *Config) HasSessionToken() bool {
	_, ok := c.lookup(EnvSessionToken)
	return ok
}

// HasCredentials reports whether both login credentials are available.
func (c *Config) HasCredentials() bool {
	_, _, err := c.Credentials()
	return err == nil
}
