package edition

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/entrhq/editionfetch/pkg/browser"
	"github.com/entrhq/editionfetch/pkg/config"
	"github.com/entrhq/editionfetch/pkg/decoy"
	"github.com/entrhq/editionfetch/pkg/logging"
	"github.com/entrhq/editionfetch/pkg/telemetry"
	"github.com/entrhq/editionfetch/pkg/wait"
)

const tracerName = "github.com/entrhq/editionfetch/pkg/edition"

// Result is the outcome of a successful fetch.
type Result struct {
	Artifact Artifact
	Strategy string
	Decoy    decoy.Report
}

// Fetcher runs the retrieval pipeline.
type Fetcher struct {
	cfg      *config.Config
	strategy SessionStrategy
	decoy    decoy.Strategy
	sleep    decoy.SleepFunc
	log      *logging.Logger
	tracer   trace.Tracer
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithStrategy overrides the session strategy chosen from the configuration.
func WithStrategy(s SessionStrategy) Option {
	return func(f *Fetcher) { f.strategy = s }
}

// WithDecoy overrides the decoy browsing chosen from the configuration.
func WithDecoy(s decoy.Strategy) Option {
	return func(f *Fetcher) { f.decoy = s }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

// WithSleep replaces the settle sleeps, mostly for tests.
func WithSleep(fn decoy.SleepFunc) Option {
	return func(f *Fetcher) { f.sleep = fn }
}

// NewFetcher creates a fetcher. Unless a strategy is given, it is selected
// from the auth mode, so missing secrets are reported here.
func NewFetcher(cfg *config.Config, opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		cfg:    cfg,
		sleep:  wait.Sleep,
		log:    logging.Discard(),
		tracer: telemetry.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.decoy == nil {
		if cfg.Decoy.Enabled {
			f.decoy = decoy.NewRandomBrowsing(cfg.Decoy.Sites, cfg.Decoy.MinSites, cfg.Decoy.MaxSites,
				cfg.Site.HomeURL, cfg.Site.ArticleSelector, f.log.Named("decoy"))
		} else {
			f.decoy = decoy.None{}
		}
	}

	if f.strategy == nil {
		strategy, err := SelectStrategy(cfg, f.decoy, f.log.Named("session"))
		if err != nil {
			return nil, err
		}
		f.strategy = strategy
	}
	return f, nil
}

// Strategy returns the session strategy in use.
func (f *Fetcher) Strategy() SessionStrategy {
	return f.strategy
}

// step runs fn inside its own span.
func (f *Fetcher) step(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	ctx, span := f.tracer.Start(ctx, name)
	defer func() { telemetry.End(span, err) }()
	return fn(ctx)
}

// Fetch establishes a session, downloads the current edition and returns
// the resolved artifact. ErrEditionNotReady is returned before any download
// is attempted.
func (f *Fetcher) Fetch(ctx context.Context, d browser.Driver) (res *Result, err error) {
	ctx, span := f.tracer.Start(ctx, "edition.Fetch",
		trace.WithAttributes(attribute.String("edition.strategy", f.strategy.Name())))
	defer func() { telemetry.End(span, err) }()

	res = &Result{Strategy: f.strategy.Name()}

	err = f.step(ctx, "edition.establish", func(ctx context.Context) error {
		report, err := f.strategy.Establish(ctx, d)
		res.Decoy = report
		return err
	})
	if err != nil {
		return res, fmt.Errorf("failed to establish session: %w", err)
	}
	f.log.Infof("session established (%s)", f.strategy.Name())

	err = f.step(ctx, "edition.open", func(ctx context.Context) error {
		if err := f.OpenCurrentEdition(ctx, d); err != nil {
			return err
		}
		return f.CheckEditionReady(d)
	})
	if err != nil {
		return res, err
	}

	var before Snapshot
	err = f.step(ctx, "edition.download", func(ctx context.Context) error {
		var err error
		if before, err = f.TriggerDownload(ctx, d); err != nil {
			return err
		}
		return WaitForDownloads(ctx, d.DownloadDir(), DownloadWait{
			InitialDelay:    f.cfg.Delays.Small,
			Interval:        f.cfg.Download.PollInterval,
			Timeout:         f.cfg.Download.Timeout,
			PartialSuffixes: f.cfg.Download.PartialSuffixes,
			Ready:           NewFileReady(before, f.cfg.Download.PartialSuffixes),
			Log:             f.log,
		})
	})
	if err != nil {
		return res, err
	}

	artifact, err := ResolveArtifact(d.DownloadDir(), before, f.cfg.Download.Pattern, f.cfg.Download.PartialSuffixes)
	if err != nil {
		return res, err
	}
	telemetry.Event(ctx, "edition.resolved")
	f.log.Infof("downloaded %s (%d bytes)", artifact.Name, artifact.Size)

	res.Artifact = artifact
	return res, nil
}
