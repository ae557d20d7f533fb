package edition

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/editionfetch/pkg/browser"
	"github.com/entrhq/editionfetch/pkg/config"
	"github.com/entrhq/editionfetch/pkg/decoy"
	"github.com/entrhq/editionfetch/pkg/logging"
	"github.com/entrhq/editionfetch/pkg/wait"
)

// SessionStrategy establishes an authenticated session in the browser.
type SessionStrategy interface {
	// Name identifies the strategy in logs and reports
	Name() string

	// Establish leaves the browser logged in, or returns an error matching
	// ErrLoginFailed. The decoy report is empty for strategies without decoy
	// browsing.
	Establish(ctx context.Context, d browser.Driver) (decoy.Report, error)
}

// challengeSolvedStates are the substrings of a challenge widget's state that
// mean the widget no longer blocks the form.
var challengeSolvedStates = []string{"completed", "solved", "success"}

// TokenStrategy injects a pre-issued session token as a cookie.
type TokenStrategy struct {
	Site          config.SiteConfig
	Token         string
	Settle        time.Duration
	VerifyTimeout time.Duration

	Sleep decoy.SleepFunc
	Log   *logging.Logger
}

// Name returns "token".
func (s *TokenStrategy) Name() string { return "token" }

// Establish opens the site once so the cookie domain is live, sets the
// session cookie and reloads the edition page.
func (s *TokenStrategy) Establish(ctx context.Context, d browser.Driver) (decoy.Report, error) {
	s.Log.Infof("establishing session with token cookie %s", s.Site.CookieName)

	if err := d.Navigate(s.Site.EditionURL); err != nil {
		return decoy.Report{}, fmt.Errorf("failed to open %s: %w", s.Site.EditionURL, err)
	}
	if err := s.Sleep(ctx, s.Settle); err != nil {
		return decoy.Report{}, err
	}

	cookie := browser.Cookie{
		Name:   s.Site.CookieName,
		Value:  s.Token,
		Domain: s.Site.CookieDomain,
		Path:   "/",
	}
	if err := d.AddCookie(cookie); err != nil {
		return decoy.Report{}, &LoginError{Reason: "could not set session cookie", Err: err}
	}
	if err := cookieStored(d, cookie); err != nil {
		return decoy.Report{}, err
	}

	if err := d.Navigate(s.Site.EditionURL); err != nil {
		return decoy.Report{}, fmt.Errorf("failed to reload %s: %w", s.Site.EditionURL, err)
	}
	if err := s.Sleep(ctx, s.Settle); err != nil {
		return decoy.Report{}, err
	}

	return decoy.Report{}, verifySession(d, s.Site, s.VerifyTimeout)
}

// cookieStored checks the browser kept the cookie. A domain the context does
// not accept drops it silently.
func cookieStored(d browser.Driver, want browser.Cookie) error {
	cookies, err := d.Cookies()
	if err != nil {
		return &LoginError{Reason: "could not read cookies", Err: err}
	}
	for _, c := range cookies {
		if c.Name == want.Name && c.Value == want.Value {
			return nil
		}
	}
	return &LoginError{Reason: fmt.Sprintf("session cookie %s was not stored for %s", want.Name, want.Domain)}
}

// LoginStrategy fills in the login form, waits for the challenge widget and
// submits.
type LoginStrategy struct {
	Site     config.SiteConfig
	Username string
	Password string
	Login    config.LoginConfig
	Delays   config.Delays
	Decoy    decoy.Strategy

	Sleep decoy.SleepFunc
	Log   *logging.Logger
}

// Name returns "login".
func (s *LoginStrategy) Name() string { return "login" }

// Establish runs the decoy browsing, then the interactive login.
func (s *LoginStrategy) Establish(ctx context.Context, d browser.Driver) (decoy.Report, error) {
	var report decoy.Report
	if s.Decoy != nil {
		report = s.Decoy.BeforeLogin(ctx, d)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	s.Log.Infof("logging in as %s", s.Username)
	if err := d.Navigate(s.Site.EditionURL); err != nil {
		return report, fmt.Errorf("failed to open %s: %w", s.Site.EditionURL, err)
	}
	if err := s.Sleep(ctx, s.Delays.Small); err != nil {
		return report, err
	}

	if err := d.Fill(s.Site.UsernameSelector, s.Username); err != nil {
		return report, &LoginError{Reason: "username field not found", Err: err}
	}
	if err := d.Fill(s.Site.PasswordSelector, s.Password); err != nil {
		return report, &LoginError{Reason: "password field not found", Err: err}
	}

	s.Log.Infof("waiting for the challenge widget")
	err := wait.Until(ctx, wait.Options{
		Interval: s.Login.PollInterval,
		Timeout:  s.Login.ReadyTimeout,
	}, s.formReady(d))
	if err != nil {
		if ctx.Err() != nil {
			return report, err
		}
		return report, &LoginError{Reason: "login form never became ready", Err: err}
	}

	if err := d.Click(s.Site.SubmitSelector); err != nil {
		return report, &LoginError{Reason: "could not submit login form", Err: err}
	}
	s.Log.Verbosef("login submitted, settling for %s", s.Login.SettleDelay)
	if err := s.Sleep(ctx, s.Login.SettleDelay); err != nil {
		return report, err
	}

	return report, verifySession(d, s.Site, s.Delays.Large)
}

// formReady is satisfied once the challenge is solved and the submit control
// can be clicked.
func (s *LoginStrategy) formReady(d browser.Driver) wait.Condition {
	return func(context.Context) (bool, error) {
		solved, err := challengeSolved(d, s.Site.ChallengeSelector)
		if err != nil || !solved {
			return false, err
		}
		state, err := d.State(s.Site.SubmitSelector)
		if err != nil {
			return false, err
		}
		if !state.Ready() {
			s.Log.Debugf("submit control not ready: %+v", state)
		}
		return state.Ready(), nil
	}
}

// challengeSolved reads the widget state from data-state, falling back to the
// class list. A page without the widget counts as solved.
func challengeSolved(d browser.Driver, selector string) (bool, error) {
	if selector == "" {
		return true, nil
	}
	state, err := d.State(selector)
	if err != nil {
		return false, err
	}
	if !state.Present {
		return true, nil
	}

	value, err := d.Attribute(selector, "data-state")
	if err != nil {
		return false, err
	}
	if value == "" {
		if value, err = d.Attribute(selector, "class"); err != nil {
			return false, err
		}
	}

	value = strings.ToLower(value)
	for _, solved := range challengeSolvedStates {
		if strings.Contains(value, solved) {
			return true, nil
		}
	}
	return false, nil
}

// verifySession fails when the browser is still on the login path or the
// post-login marker never shows up.
func verifySession(d browser.Driver, site config.SiteConfig, timeout time.Duration) error {
	if site.LoginPathMarker != "" && strings.Contains(d.URL(), site.LoginPathMarker) {
		return &LoginError{Reason: fmt.Sprintf("still on login page %s", d.URL())}
	}
	if site.PostLoginSelector == "" {
		return nil
	}
	if err := d.WaitFor(site.PostLoginSelector, timeout); err != nil {
		return &LoginError{Reason: "post-login marker " + site.PostLoginSelector + " did not appear", Err: err}
	}
	return nil
}

// SelectStrategy picks the session strategy for the configured auth mode.
// Secrets are resolved here, so a missing variable fails before the browser
// is used.
func SelectStrategy(cfg *config.Config, dec decoy.Strategy, log *logging.Logger) (SessionStrategy, error) {
	if log == nil {
		log = logging.Discard()
	}

	token := func() (SessionStrategy, error) {
		value, err := cfg.SessionToken()
		if err != nil {
			return nil, err
		}
		return &TokenStrategy{
			Site:          cfg.Site,
			Token:         value,
			Settle:        cfg.Delays.Small,
			VerifyTimeout: cfg.Delays.Large,
			Sleep:         wait.Sleep,
			Log:           log,
		}, nil
	}
	login := func() (SessionStrategy, error) {
		username, password, err := cfg.Credentials()
		if err != nil {
			return nil, err
		}
		if dec == nil {
			dec = decoy.None{}
		}
		return &LoginStrategy{
			Site:     cfg.Site,
			Username: username,
			Password: password,
			Login:    cfg.Login,
			Delays:   cfg.Delays,
			Decoy:    dec,
			Sleep:    wait.Sleep,
			Log:      log,
		}, nil
	}

	switch cfg.Auth.Mode {
	case config.AuthToken:
		return token()
	case config.AuthLogin:
		return login()
	default:
		if cfg.HasSessionToken() {
			return token()
		}
		if cfg.HasCredentials() {
			return login()
		}
		return nil, &config.MissingEnvError{
			Vars: []string{config.EnvSessionToken, config.EnvUsername, config.EnvPassword},
			Hint: "export a session token, or a username and password",
		}
	}
}
