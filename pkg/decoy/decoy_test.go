package decoy

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/entrhq/editionfetch/pkg/browser/browsertest"
	"github.com/entrhq/editionfetch/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(context.Context, time.Duration) error { return nil }

func newBrowsing(sites []string, minSites, maxSites int) *RandomBrowsing {
	return &RandomBrowsing{
		Sites:           sites,
		MinSites:        minSites,
		MaxSites:        maxSites,
		HomeURL:         "https://www.zeit.de",
		ArticleSelector: "a[href*='/zeit/']",
		Rand:            rand.New(rand.NewPCG(1, 2)),
		Sleep:           noSleep,
		Log:             logging.Discard(),
	}
}

func TestNone(t *testing.T) {
	report := None{}.BeforeLogin(context.Background(), browsertest.New(t.TempDir()))
	require.Len(t, report.Steps, 1)
	assert.Equal(t, OutcomeSkipped, report.Steps[0].Outcome)
}

func TestRandomBrowsing_VisitsDistinctSitesWithinBounds(t *testing.T) {
	sites := []string{"https://a.example", "https://b.example", "https://c.example", "https://d.example"}
	driver := browsertest.New(t.TempDir())
	browsing := newBrowsing(sites, 2, 3)

	report := browsing.BeforeLogin(context.Background(), driver)

	visited := map[string]bool{}
	for _, url := range driver.Navigations {
		if url == browsing.HomeURL {
			continue
		}
		assert.Contains(t, sites, url)
		assert.False(t, visited[url], "site %s visited twice", url)
		visited[url] = true
	}
	assert.GreaterOrEqual(t, len(visited), 2)
	assert.LessOrEqual(t, len(visited), 3)
	assert.Equal(t, browsing.HomeURL, driver.Navigations[len(driver.Navigations)-1])
	assert.Zero(t, report.Count(OutcomeFailed))
	assert.Contains(t, driver.Scripts, "window.scrollTo(0, document.body.scrollHeight/3);")
	assert.Contains(t, driver.Scripts, "window.scrollTo(0, document.body.scrollHeight/4);")
}

func TestRandomBrowsing_FailuresAreReportedNotPropagated(t *testing.T) {
	sites := []string{"https://down.example", "https://up.example"}
	driver := browsertest.New(t.TempDir())
	driver.NavigateErrors["https://down.example"] = errors.New("net::ERR_NAME_NOT_RESOLVED")
	driver.NavigateErrors["https://www.zeit.de"] = errors.New("timeout")

	report := newBrowsing(sites, 2, 2).BeforeLogin(context.Background(), driver)

	steps := map[string]Step{}
	for _, s := range report.Steps {
		steps[s.Target] = s
	}
	assert.Equal(t, OutcomeFailed, steps["https://down.example"].Outcome)
	assert.Contains(t, steps["https://down.example"].Error, "ERR_NAME_NOT_RESOLVED")
	assert.Equal(t, OutcomeSucceeded, steps["https://up.example"].Outcome)
	assert.Equal(t, OutcomeFailed, steps["https://www.zeit.de"].Outcome)
	assert.Equal(t, 2, report.Count(OutcomeFailed))
}

func TestRandomBrowsing_OpensArticle(t *testing.T) {
	driver := browsertest.New(t.TempDir())
	home := driver.AddPage("https://www.zeit.de", "<html></html>")
	home.Elements["a[href*='/zeit/']"] = &browsertest.Element{
		Visible: true,
		Enabled: true,
		Texts:   []string{"one", "two", "three", "four", "five", "six", "seven"},
	}

	report := newBrowsing(nil, 0, 0).BeforeLogin(context.Background(), driver)

	require.Equal(t, 1, driver.ClickCount("a[href*='/zeit/']"))
	last := report.Steps[len(report.Steps)-1]
	assert.Equal(t, "article", last.Target)
	assert.Equal(t, OutcomeSucceeded, last.Outcome)
	for _, click := range driver.Clicks {
		assert.NotContains(t, []string{"a[href*='/zeit/'][5]", "a[href*='/zeit/'][6]"}, click, "only the first five links are candidates")
	}
}

func TestRandomBrowsing_CancelledContextSkips(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	driver := browsertest.New(t.TempDir())

	report := newBrowsing([]string{"https://a.example"}, 1, 1).BeforeLogin(ctx, driver)

	assert.Empty(t, driver.Navigations)
	assert.Equal(t, len(report.Steps), report.Count(OutcomeSkipped))
}

func TestAcceptConsent_Selector(t *testing.T) {
	driver := browsertest.New(t.TempDir())
	page := driver.AddPage("https://a.example", "")
	page.Elements[".fc-cta-consent"] = &browsertest.Element{Visible: true, Enabled: true}
	page.Elements["[id*='cookie'] button"] = &browsertest.Element{Visible: false, Enabled: true}
	require.NoError(t, driver.Navigate("https://a.example"))

	outcome := AcceptConsent(context.Background(), driver, noSleep, logging.Discard())

	assert.Equal(t, OutcomeSucceeded, outcome)
	assert.Equal(t, []string{".fc-cta-consent[0]"}, driver.Clicks, "hidden banners are not clicked")
}

func TestAcceptConsent_ButtonText(t *testing.T) {
	driver := browsertest.New(t.TempDir())
	page := driver.AddPage("https://b.example", "")
	page.Elements["button"] = &browsertest.Element{Texts: []string{"Einstellungen", "Alle akzeptieren"}}
	require.NoError(t, driver.Navigate("https://b.example"))

	outcome := AcceptConsent(context.Background(), driver, noSleep, logging.Discard())

	assert.Equal(t, OutcomeSucceeded, outcome)
	assert.Equal(t, []string{"button[1]"}, driver.Clicks)
}

func TestAcceptConsent_NoBanner(t *testing.T) {
	driver := browsertest.New(t.TempDir())
	outcome := AcceptConsent(context.Background(), driver, noSleep, logging.Discard())
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Empty(t, driver.Clicks)
}
