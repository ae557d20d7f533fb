// Package decoy generates unrelated browsing before an interactive login so
// the session looks less like automated traffic.
//
// Decoy browsing is best-effort: nothing it does can fail a run. Every step
// is reported as a Step with an Outcome instead, so callers and tests can
// still see what happened.
package decoy

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/entrhq/editionfetch/pkg/browser"
	"github.com/entrhq/editionfetch/pkg/logging"
	"github.com/entrhq/editionfetch/pkg/wait"
)

// Outcome is the result of one best-effort step.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Step records one best-effort action.
type Step struct {
	Target  string  `json:"target"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

// Report collects the steps of one decoy run.
type Report struct {
	Steps []Step `json:"steps"`
}

func (r *Report) add(target string, outcome Outcome, err error) {
	step := Step{Target: target, Outcome: outcome}
	if err != nil {
		step.Error = err.Error()
	}
	r.Steps = append(r.Steps, step)
}

// Count returns how many steps ended with outcome.
func (r Report) Count(outcome Outcome) int {
	n := 0
	for _, s := range r.Steps {
		if s.Outcome == outcome {
			n++
		}
	}
	return n
}

// Strategy performs decoy traffic before a login.
type Strategy interface {
	BeforeLogin(ctx context.Context, d browser.Driver) Report
}

// None performs no decoy traffic.
type None struct{}

// BeforeLogin reports a single skipped step.
func (None) BeforeLogin(context.Context, browser.Driver) Report {
	return Report{Steps: []Step{{Target: "decoy", Outcome: OutcomeSkipped}}}
}

// SleepFunc pauses for d; wait.Sleep in production.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RandomBrowsing visits a random sample of sites, then the publisher's
// homepage, dwelling and scrolling like a reader.
type RandomBrowsing struct {
	Sites           []string
	MinSites        int
	MaxSites        int
	HomeURL         string
	ArticleSelector string

	Rand  *rand.Rand
	Sleep SleepFunc
	Log   *logging.Logger
}

// NewRandomBrowsing creates a decoy strategy with a time-seeded random
// source and real sleeps.
func NewRandomBrowsing(sites []string, minSites, maxSites int, homeURL, articleSelector string, log *logging.Logger) *RandomBrowsing {
	if log == nil {
		log = logging.Discard()
	}
	seed := uint64(time.Now().UnixNano())
	return &RandomBrowsing{
		Sites:           sites,
		MinSites:        minSites,
		MaxSites:        maxSites,
		HomeURL:         homeURL,
		ArticleSelector: articleSelector,
		Rand:            rand.New(rand.NewPCG(seed, seed>>1)),
		Sleep:           wait.Sleep,
		Log:             log,
	}
}

// uniform returns a random duration in [lo, hi).
func (b *RandomBrowsing) uniform(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(b.Rand.Int64N(int64(hi-lo)))
}

// sampleCount returns a count in [MinSites, MaxSites], capped by the pool size.
func (b *RandomBrowsing) sampleCount() int {
	lo, hi := b.MinSites, b.MaxSites
	if hi < lo {
		hi = lo
	}
	n := lo + b.Rand.IntN(hi-lo+1)
	if n > len(b.Sites) {
		n = len(b.Sites)
	}
	return n
}

// sample picks n distinct sites.
func (b *RandomBrowsing) sample(n int) []string {
	order := b.Rand.Perm(len(b.Sites))
	picked := make([]string, 0, n)
	for _, i := range order[:n] {
		picked = append(picked, b.Sites[i])
	}
	return picked
}

// BeforeLogin browses the sample, then the homepage. It never fails; a
// cancelled context stops it early with the remaining steps skipped.
func (b *RandomBrowsing) BeforeLogin(ctx context.Context, d browser.Driver) Report {
	var report Report

	sites := b.sample(b.sampleCount())
	b.Log.Infof("creating browsing history across %d sites", len(sites))

	for _, site := range sites {
		if ctx.Err() != nil {
			report.add(site, OutcomeSkipped, ctx.Err())
			continue
		}
		err := b.visit(ctx, d, site)
		if err != nil {
			b.Log.Warnf("could not visit %s: %v", site, err)
			report.add(site, OutcomeFailed, err)
			continue
		}
		report.add(site, OutcomeSucceeded, nil)
	}

	if b.HomeURL == "" || ctx.Err() != nil {
		report.add("home", OutcomeSkipped, ctx.Err())
		return report
	}

	b.Log.Infof("browsing %s before login", b.HomeURL)
	if err := b.browseHome(ctx, d); err != nil {
		b.Log.Warnf("could not browse %s: %v", b.HomeURL, err)
		report.add(b.HomeURL, OutcomeFailed, err)
	} else {
		report.add(b.HomeURL, OutcomeSucceeded, nil)
	}

	outcome, err := b.openArticle(ctx, d)
	if err != nil {
		b.Log.Infof("could not open an article: %v", err)
	}
	report.add("article", outcome, err)

	b.Log.Infof("browsing history created (%d ok, %d failed)", report.Count(OutcomeSucceeded), report.Count(OutcomeFailed))
	return report
}

func (b *RandomBrowsing) visit(ctx context.Context, d browser.Driver, site string) error {
	b.Log.Verbosef("visiting %s", site)
	if err := d.Navigate(site); err != nil {
		return err
	}
	AcceptConsent(ctx, d, b.Sleep, b.Log)

	if err := b.Sleep(ctx, b.uniform(2*time.Second, 5*time.Second)); err != nil {
		return err
	}
	if _, err := d.Evaluate("window.scrollTo(0, document.body.scrollHeight/3);"); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return b.Sleep(ctx, b.uniform(500*time.Millisecond, 1500*time.Millisecond))
}

func (b *RandomBrowsing) browseHome(ctx context.Context, d browser.Driver) error {
	if err := d.Navigate(b.HomeURL); err != nil {
		return err
	}
	AcceptConsent(ctx, d, b.Sleep, b.Log)

	if err := b.Sleep(ctx, b.uniform(2*time.Second, 4*time.Second)); err != nil {
		return err
	}
	if _, err := d.Evaluate("window.scrollTo(0, document.body.scrollHeight/4);"); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return b.Sleep(ctx, b.uniform(time.Second, 2*time.Second))
}

// openArticle clicks one of the first five article links, if any.
func (b *RandomBrowsing) openArticle(ctx context.Context, d browser.Driver) (Outcome, error) {
	if b.ArticleSelector == "" {
		return OutcomeSkipped, nil
	}
	texts, err := d.Texts(b.ArticleSelector)
	if err != nil {
		return OutcomeFailed, err
	}
	if len(texts) == 0 {
		return OutcomeSkipped, nil
	}
	candidates := min(len(texts), 5)
	if err := d.ClickNth(b.ArticleSelector, b.Rand.IntN(candidates)); err != nil {
		return OutcomeFailed, err
	}
	if err := b.Sleep(ctx, b.uniform(3*time.Second, 6*time.Second)); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeSucceeded, nil
}
