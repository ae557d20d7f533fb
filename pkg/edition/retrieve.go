package edition

import (
	"context"
	"fmt"

	"github.com/entrhq/editionfetch/pkg/browser"
)

// linkSelector matches every anchor; links are told apart by visible text.
const linkSelector = "a"

// OpenCurrentEdition navigates to the edition overview and follows the link
// to the current issue. When the link is missing the overview itself is
// assumed to show the current issue.
func (f *Fetcher) OpenCurrentEdition(ctx context.Context, d browser.Driver) error {
	site := f.cfg.Site
	f.log.Infof("opening %s", site.EditionURL)
	if err := d.Navigate(site.EditionURL); err != nil {
		return fmt.Errorf("failed to open %s: %w", site.EditionURL, err)
	}
	if err := f.sleep(ctx, f.cfg.Delays.Small); err != nil {
		return err
	}

	if err := clickLinkByText(d, site.CurrentEditionText); err != nil {
		f.log.Warnf("could not follow %q, staying on %s: %v", site.CurrentEditionText, d.URL(), err)
		return nil
	}
	return f.sleep(ctx, f.cfg.Delays.Small)
}

// CheckEditionReady returns ErrEditionNotReady when the current page shows
// the pending marker.
func (f *Fetcher) CheckEditionReady(d browser.Driver) error {
	pending := f.cfg.Site.PendingText
	if pending == "" {
		return nil
	}
	content, err := d.Content()
	if err != nil {
		return fmt.Errorf("failed to read page content: %w", err)
	}
	text, err := browser.VisibleText(content)
	if err != nil {
		return err
	}
	if browser.ContainsText(text, pending) {
		f.log.Warnf("page shows %q", pending)
		return ErrEditionNotReady
	}
	return nil
}

// TriggerDownload records the download directory and clicks the download
// link. The returned snapshot lets ResolveArtifact tell new files from old.
func (f *Fetcher) TriggerDownload(ctx context.Context, d browser.Driver) (Snapshot, error) {
	before, err := TakeSnapshot(d.DownloadDir())
	if err != nil {
		return nil, err
	}
	if err := f.sleep(ctx, f.cfg.Delays.Small); err != nil {
		return nil, err
	}
	if err := clickLinkByText(d, f.cfg.Site.DownloadText); err != nil {
		return nil, fmt.Errorf("failed to start download: %w", err)
	}
	f.log.Infof("download triggered into %s", d.DownloadDir())
	return before, nil
}

// clickLinkByText clicks the first anchor whose rendered text matches text.
func clickLinkByText(d browser.Driver, text string) error {
	texts, err := d.Texts(linkSelector)
	if err != nil {
		return fmt.Errorf("failed to list links: %w", err)
	}
	for i, candidate := range texts {
		if browser.TextMatches(candidate, text) {
			return d.ClickNth(linkSelector, i)
		}
	}
	return fmt.Errorf("%w: %q", ErrLinkNotFound, text)
}
