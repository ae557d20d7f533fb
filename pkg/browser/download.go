package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/editionfetch/pkg/logging"
	"github.com/playwright-community/playwright-go"
)

// downloadTracker writes page-triggered downloads into a directory, keeping
// the partial suffix on the file until its content is complete.
type downloadTracker struct {
	dir    string
	suffix string
	log    *logging.Logger
	wg     sync.WaitGroup

	mu      sync.Mutex
	watched map[playwright.Page]struct{}
}

func newDownloadTracker(dir, suffix string, log *logging.Logger) *downloadTracker {
	return &downloadTracker{
		dir:     dir,
		suffix:  suffix,
		log:     log,
		watched: make(map[playwright.Page]struct{}),
	}
}

// watch captures the downloads of page. Pages already watched are skipped,
// so it can serve both the context's page event and the first page.
func (t *downloadTracker) watch(page playwright.Page) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.watched[page]; ok {
		return
	}
	t.watched[page] = struct{}{}
	page.OnDownload(t.capture)
}

// targetName picks a safe file name inside the download directory.
func targetName(suggested string, now time.Time) string {
	name := filepath.Base(strings.TrimSpace(suggested))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = fmt.Sprintf("download-%s", now.Format("20060102-150405"))
	}
	return name
}

// capture runs on Playwright's event goroutine. The placeholder is created
// synchronously so the partial suffix is visible from the moment the
// download starts; the blocking copy happens on its own goroutine.
func (t *downloadTracker) capture(download playwright.Download) {
	final := filepath.Join(t.dir, targetName(download.SuggestedFilename(), time.Now()))
	partial := final + t.suffix

	if err := os.WriteFile(partial, nil, 0600); err != nil {
		t.log.Errorf("failed to create %s: %v", partial, err)
		return
	}
	t.log.Infof("download started: %s", filepath.Base(final))

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		if err := download.SaveAs(partial); err != nil {
			t.log.Errorf("download of %s failed: %v", filepath.Base(final), err)
			_ = os.Remove(partial)
			return
		}
		if err := os.Rename(partial, final); err != nil {
			t.log.Errorf("failed to finalize %s: %v", final, err)
			return
		}
		t.log.Infof("download finished: %s", filepath.Base(final))
	}()
}

func (t *downloadTracker) wait() {
	t.wg.Wait()
}
