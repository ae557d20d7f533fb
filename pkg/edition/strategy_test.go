package edition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/editionfetch/pkg/browser"
	"github.com/entrhq/editionfetch/pkg/browser/browsertest"
	"github.com/entrhq/editionfetch/pkg/config"
	"github.com/entrhq/editionfetch/pkg/decoy"
	"github.com/entrhq/editionfetch/pkg/logging"
	"github.com/entrhq/editionfetch/pkg/wait"
)

const (
	landingURL = "https://epaper.zeit.de/abo/diezeit?session=1"
	loginURL   = "https://meine.zeit.de/anmelden?url=https%3A%2F%2Fepaper.zeit.de"
)

func noSleep(context.Context, time.Duration) error { return nil }

func newTokenStrategy(site config.SiteConfig) *TokenStrategy {
	return &TokenStrategy{
		Site:  site,
		Token: "secret-token",
		Sleep: noSleep,
		Log:   logging.Discard(),
	}
}

// loginPage registers a login form at the edition URL. The challenge widget
// reports solved after solveAfter state reads; a negative value never
// solves it. Submitting navigates to next.
func loginPage(d *browsertest.Driver, site config.SiteConfig, solveAfter int, next string) *browsertest.Page {
	page := d.AddPage(site.EditionURL, "<html><body><form></form></body></html>")
	page.Elements[site.UsernameSelector] = &browsertest.Element{Visible: true, Enabled: true}
	page.Elements[site.PasswordSelector] = &browsertest.Element{Visible: true, Enabled: true}

	reads := 0
	page.Elements[site.ChallengeSelector] = &browsertest.Element{
		Visible: true,
		Attrs:   map[string]string{"data-state": "started"},
		OnRead: func(e *browsertest.Element) {
			reads++
			if solveAfter >= 0 && reads > solveAfter {
				e.Attrs["data-state"] = "completed"
			}
		},
	}
	page.Elements[site.SubmitSelector] = &browsertest.Element{
		Visible: true,
		Enabled: true,
		OnClick: func(d *browsertest.Driver, _ int) error {
			d.Go(next)
			return nil
		},
	}
	return page
}

// recordingDecoy remembers whether it ran and what the browser had done
// before.
type recordingDecoy struct {
	driver            *browsertest.Driver
	called            bool
	navigationsBefore []string
}

func (r *recordingDecoy) BeforeLogin(context.Context, browser.Driver) decoy.Report {
	r.called = true
	r.navigationsBefore = append([]string(nil), r.driver.Navigations...)
	return decoy.Report{Steps: []decoy.Step{{Target: "https://a.example", Outcome: decoy.OutcomeSucceeded}}}
}

func newLoginStrategy(site config.SiteConfig, timeout time.Duration) *LoginStrategy {
	return &LoginStrategy{
		Site:     site,
		Username: "reader@example.com",
		Password: "hunter2",
		Login: config.LoginConfig{
			ReadyTimeout: timeout,
			PollInterval: time.Millisecond,
		},
		Decoy: decoy.None{},
		Sleep: noSleep,
		Log:   logging.Discard(),
	}
}

func TestTokenStrategy_SetsCookieAndVerifies(t *testing.T) {
	site := config.Default().Site
	d := browsertest.New(t.TempDir())
	page := d.AddPage(site.EditionURL, "<html></html>")
	page.Elements[site.PostLoginSelector] = &browsertest.Element{Visible: true}

	_, err := newTokenStrategy(site).Establish(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, []string{site.EditionURL, site.EditionURL}, d.Navigations)
	require.Len(t, d.Jar, 1)
	assert.Equal(t, browser.Cookie{
		Name:   "zeit_sso_201501",
		Value:  "secret-token",
		Domain: ".zeit.de",
		Path:   "/",
	}, d.Jar[0])
}

func TestTokenStrategy_RejectedToken(t *testing.T) {
	site := config.Default().Site
	d := browsertest.New(t.TempDir())
	d.AddPage(site.EditionURL, "<html></html>")

	_, err := newTokenStrategy(site).Establish(context.Background(), d)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLoginFailed))
}

func TestTokenStrategy_CookieNotStored(t *testing.T) {
	site := config.Default().Site
	d := browsertest.New(t.TempDir())
	d.RejectCookies = true
	page := d.AddPage(site.EditionURL, "<html></html>")
	page.Elements[site.PostLoginSelector] = &browsertest.Element{Visible: true}

	_, err := newTokenStrategy(site).Establish(context.Background(), d)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Contains(t, err.Error(), "was not stored")
	// no reload once the cookie is known to be missing
	assert.Equal(t, []string{site.EditionURL}, d.Navigations)
}

func TestLoginStrategy(t *testing.T) {
	site := config.Default().Site

	t.Run("marker appears", func(t *testing.T) {
		d := browsertest.New(t.TempDir())
		loginPage(d, site, 3, landingURL)
		landing := d.AddPage(landingURL, "<html></html>")
		landing.Elements[site.PostLoginSelector] = &browsertest.Element{Visible: true}

		_, err := newLoginStrategy(site, time.Second).Establish(context.Background(), d)
		require.NoError(t, err)

		assert.Equal(t, "reader@example.com", d.Filled[site.UsernameSelector])
		assert.Equal(t, "hunter2", d.Filled[site.PasswordSelector])
		assert.Equal(t, 1, d.ClickCount(site.SubmitSelector))
	})

	t.Run("still on login path", func(t *testing.T) {
		d := browsertest.New(t.TempDir())
		loginPage(d, site, 0, loginURL)
		page := d.AddPage(loginURL, "<html></html>")
		page.Elements[site.PostLoginSelector] = &browsertest.Element{Visible: true}

		_, err := newLoginStrategy(site, time.Second).Establish(context.Background(), d)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrLoginFailed))
		assert.Contains(t, err.Error(), "still on login page")
	})

	t.Run("marker never appears", func(t *testing.T) {
		d := browsertest.New(t.TempDir())
		loginPage(d, site, 0, landingURL)
		d.AddPage(landingURL, "<html></html>")

		_, err := newLoginStrategy(site, time.Second).Establish(context.Background(), d)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrLoginFailed))
		assert.Contains(t, err.Error(), site.PostLoginSelector)
	})

	t.Run("challenge never solved", func(t *testing.T) {
		d := browsertest.New(t.TempDir())
		loginPage(d, site, -1, landingURL)

		_, err := newLoginStrategy(site, 30*time.Millisecond).Establish(context.Background(), d)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrLoginFailed))
		assert.True(t, errors.Is(err, wait.ErrTimeout))
		assert.Zero(t, d.ClickCount(site.SubmitSelector))
	})

	t.Run("submit disabled", func(t *testing.T) {
		d := browsertest.New(t.TempDir())
		page := loginPage(d, site, 0, landingURL)
		page.Elements[site.SubmitSelector].Enabled = false

		_, err := newLoginStrategy(site, 30*time.Millisecond).Establish(context.Background(), d)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrLoginFailed))
		assert.Zero(t, d.ClickCount(site.SubmitSelector))
	})

	t.Run("runs decoy first", func(t *testing.T) {
		d := browsertest.New(t.TempDir())
		loginPage(d, site, 0, landingURL)
		landing := d.AddPage(landingURL, "<html></html>")
		landing.Elements[site.PostLoginSelector] = &browsertest.Element{Visible: true}

		recorder := &recordingDecoy{driver: d}
		strategy := newLoginStrategy(site, time.Second)
		strategy.Decoy = recorder

		report, err := strategy.Establish(context.Background(), d)
		require.NoError(t, err)
		require.Len(t, report.Steps, 1)
		assert.Equal(t, decoy.OutcomeSucceeded, report.Steps[0].Outcome)
		assert.True(t, recorder.called)
		assert.Empty(t, recorder.navigationsBefore)
	})
}

func TestChallengeSolved(t *testing.T) {
	const selector = ".frc-captcha"

	tests := []struct {
		name   string
		elem   *browsertest.Element
		solved bool
	}{
		{name: "absent widget", elem: nil, solved: true},
		{name: "data-state completed", elem: &browsertest.Element{Attrs: map[string]string{"data-state": "completed"}}, solved: true},
		{name: "data-state started", elem: &browsertest.Element{Attrs: map[string]string{"data-state": "started"}}, solved: false},
		{name: "class fallback success", elem: &browsertest.Element{Attrs: map[string]string{"class": "frc-captcha frc-success"}}, solved: true},
		{name: "class fallback pending", elem: &browsertest.Element{Attrs: map[string]string{"class": "frc-captcha"}}, solved: false},
		{name: "case insensitive", elem: &browsertest.Element{Attrs: map[string]string{"data-state": "SOLVED"}}, solved: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := browsertest.New(t.TempDir())
			page := d.AddPage("https://example.com", "")
			if tt.elem != nil {
				page.Elements[selector] = tt.elem
			}
			d.Go("https://example.com")

			solved, err := challengeSolved(d, selector)
			require.NoError(t, err)
			assert.Equal(t, tt.solved, solved)
		})
	}
}

func TestSelectStrategy(t *testing.T) {
	token := map[string]string{config.EnvSessionToken: "tok"}
	creds := map[string]string{config.EnvUsername: "user", config.EnvPassword: "pass"}

	tests := []struct {
		name     string
		mode     config.AuthMode
		env      map[string]string
		strategy string
		missing  []string
	}{
		{name: "auto prefers token", mode: config.AuthAuto, env: map[string]string{config.EnvSessionToken: "tok", config.EnvUsername: "u", config.EnvPassword: "p"}, strategy: "token"},
		{name: "auto falls back to login", mode: config.AuthAuto, env: creds, strategy: "login"},
		{name: "auto with nothing", mode: config.AuthAuto, env: map[string]string{}, missing: []string{config.EnvSessionToken, config.EnvUsername, config.EnvPassword}},
		{name: "auto with username only", mode: config.AuthAuto, env: map[string]string{config.EnvUsername: "u"}, missing: []string{config.EnvSessionToken, config.EnvUsername, config.EnvPassword}},
		{name: "token mode", mode: config.AuthToken, env: token, strategy: "token"},
		{name: "token mode without token", mode: config.AuthToken, env: creds, missing: []string{config.EnvSessionToken}},
		{name: "login mode", mode: config.AuthLogin, env: creds, strategy: "login"},
		{name: "login mode without password", mode: config.AuthLogin, env: map[string]string{config.EnvUsername: "u"}, missing: []string{config.EnvPassword}},
		{name: "login mode ignores token", mode: config.AuthLogin, env: token, missing: []string{config.EnvUsername, config.EnvPassword}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default().WithEnv(config.MapLookup(tt.env))
			cfg.Auth.Mode = tt.mode

			strategy, err := SelectStrategy(cfg, decoy.None{}, nil)
			if tt.missing != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, config.ErrMissingConfig))
				var missing *config.MissingEnvError
				require.True(t, errors.As(err, &missing))
				assert.Equal(t, tt.missing, missing.Vars)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.strategy, strategy.Name())
		})
	}
}
