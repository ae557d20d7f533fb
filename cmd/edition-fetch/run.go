package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/entrhq/editionfetch/pkg/browser"
	"github.com/entrhq/editionfetch/pkg/edition"
	"github.com/entrhq/editionfetch/pkg/report"
	"github.com/entrhq/editionfetch/pkg/wait"
)

// fetchEdition downloads the current edition, retrying a pending edition as
// often as --pending-retries allows. Every attempt uses a fresh browser.
func (a *app) fetchEdition(ctx context.Context, summary *report.Summary) (*edition.Result, error) {
	fetcher, err := edition.NewFetcher(a.cfg, edition.WithLogger(a.log.Named("edition")))
	if err != nil {
		return nil, err
	}

	dir, err := a.downloadDir()
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		summary.Attempts = attempt
		res, err := a.fetchOnce(ctx, fetcher, dir)
		summary.RecordFetch(res)

		if !errors.Is(err, edition.ErrEditionNotReady) || attempt > a.opts.pendingRetries {
			return res, err
		}
		a.log.Warnf("edition not ready, retrying in %s (%d/%d)", a.opts.pendingInterval, attempt, a.opts.pendingRetries)
		if err := wait.Sleep(ctx, a.opts.pendingInterval); err != nil {
			return nil, err
		}
	}
}

// fetchOnce runs one fetch in its own browser. The browser is shut down on
// every path.
func (a *app) fetchOnce(ctx context.Context, fetcher *edition.Fetcher, dir string) (*edition.Result, error) {
	cfg := a.cfg.Browser
	manager := browser.NewSessionManager(browser.ManagerOptions{
		Engine:  cfg.Engine,
		Install: cfg.Install,
		Logger:  a.log.Named("browser"),
	})
	defer func() {
		if err := manager.Shutdown(); err != nil {
			a.log.Warnf("browser shutdown: %v", err)
		}
	}()

	if err := manager.Initialize(); err != nil {
		return nil, err
	}

	opts := browser.SessionOptions{
		Headless:    cfg.Headless,
		UserAgent:   cfg.UserAgent,
		DownloadDir: dir,
	}
	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		opts.Viewport = &browser.Viewport{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight}
	}
	if suffixes := a.cfg.Download.PartialSuffixes; len(suffixes) > 0 {
		opts.PartialSuffix = suffixes[0]
	}

	session, err := manager.StartSession("edition", opts)
	if err != nil {
		return nil, err
	}
	return fetcher.Fetch(ctx, session)
}

// downloadDir returns the configured download directory, or a fresh
// temporary one.
func (a *app) downloadDir() (string, error) {
	if a.cfg.Download.Dir != "" {
		return a.cfg.Download.Dir, nil
	}
	dir, err := os.MkdirTemp("", "edition-fetch-")
	if err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	a.log.Verbosef("downloading into %s", dir)
	return dir, nil
}
