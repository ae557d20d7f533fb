package edition

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/djherbis/times"
	"github.com/gobwas/glob"

	"github.com/entrhq/editionfetch/pkg/logging"
	"github.com/entrhq/editionfetch/pkg/wait"
)

// Artifact is a completed download.
type Artifact struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// stamp identifies one version of a directory entry. A file replaced under
// the same name gets a new stamp.
type stamp struct {
	created  time.Time
	modified time.Time
	size     int64
}

func (s stamp) equal(o stamp) bool {
	return s.size == o.size && s.created.Equal(o.created) && s.modified.Equal(o.modified)
}

// Snapshot records the entries present in a directory at one moment.
type Snapshot map[string]stamp

// TakeSnapshot lists dir. A missing directory yields an empty snapshot.
func TakeSnapshot(dir string) (Snapshot, error) {
	entries, err := listEntries(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, nil
		}
		return nil, err
	}
	snap := make(Snapshot, len(entries))
	for _, e := range entries {
		snap[e.info.Name()] = e.stamp()
	}
	return snap, nil
}

// fresh reports whether e is absent from the snapshot or was replaced since.
func (s Snapshot) fresh(e entry) bool {
	old, ok := s[e.info.Name()]
	return !ok || !old.equal(e.stamp())
}

// DownloadWait configures WaitForDownloads.
type DownloadWait struct {
	InitialDelay    time.Duration
	Interval        time.Duration
	Timeout         time.Duration
	PartialSuffixes []string

	// Ready, when set, must also hold before the wait succeeds
	Ready func(dir string) (bool, error)

	Log *logging.Logger
}

// WaitForDownloads blocks until dir holds no partial download. On timeout
// the error matches wait.ErrTimeout and either ErrDownloadTimeout, when a
// partial file is still present, or ErrMissingArtifact, when the download
// never started or vanished.
func WaitForDownloads(ctx context.Context, dir string, w DownloadWait) error {
	log := w.Log
	if log == nil {
		log = logging.Discard()
	}

	var inProgress, started bool
	err := wait.Until(ctx, wait.Options{
		InitialDelay: w.InitialDelay,
		Interval:     w.Interval,
		Timeout:      w.Timeout,
	}, func(context.Context) (bool, error) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return false, fmt.Errorf("failed to list %s: %w", dir, err)
		}
		inProgress = false
		for _, e := range entries {
			if isPartial(e.Name(), w.PartialSuffixes) {
				log.Verbosef("download in progress: %s", e.Name())
				inProgress, started = true, true
				return false, nil
			}
		}
		if w.Ready != nil {
			return w.Ready(dir)
		}
		return true, nil
	})
	if !errors.Is(err, wait.ErrTimeout) {
		return err
	}
	switch {
	case inProgress:
		return fmt.Errorf("%w: %w", ErrDownloadTimeout, err)
	case started:
		return fmt.Errorf("%w: download vanished before completing: %w", ErrMissingArtifact, err)
	default:
		return fmt.Errorf("%w: no download started: %w", ErrMissingArtifact, err)
	}
}

// NewFileReady is a DownloadWait.Ready check that holds once a completed
// file that is new or replaced since before exists.
func NewFileReady(before Snapshot, suffixes []string) func(dir string) (bool, error) {
	return func(dir string) (bool, error) {
		entries, err := listEntries(dir)
		if err != nil {
			return false, err
		}
		for _, e := range entries {
			if e.info.Mode().IsRegular() && !isPartial(e.info.Name(), suffixes) && before.fresh(e) {
				return true, nil
			}
		}
		return false, nil
	}
}

func isPartial(name string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if suffix != "" && strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// entry is a directory entry with its creation time.
type entry struct {
	path    string
	info    os.FileInfo
	created time.Time
}

func (e entry) artifact() Artifact {
	return Artifact{
		Path:      e.path,
		Name:      e.info.Name(),
		Size:      e.info.Size(),
		CreatedAt: e.created,
	}
}

func (e entry) stamp() stamp {
	return stamp{created: e.created, modified: e.info.ModTime(), size: e.info.Size()}
}

// creationTime prefers the birth time, then the change time.
func creationTime(ts times.Timespec) time.Time {
	if ts.HasBirthTime() {
		return ts.BirthTime()
	}
	if ts.HasChangeTime() {
		return ts.ChangeTime()
	}
	return ts.ModTime()
}

// listEntries returns the entries of dir, newest first.
func listEntries(dir string) ([]entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	entries := make([]entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		path := filepath.Join(dir, de.Name())
		info, err := os.Stat(path)
		if err != nil {
			// removed between listing and stat
			continue
		}
		ts, err := times.Stat(path)
		if err != nil {
			continue
		}
		entries = append(entries, entry{path: path, info: info, created: creationTime(ts)})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].created.After(entries[j].created)
	})
	return entries, nil
}

// LatestFile returns the most recently created entry of dir, whatever its
// name.
func LatestFile(dir string) (Artifact, error) {
	entries, err := listEntries(dir)
	if err != nil {
		return Artifact{}, err
	}
	if len(entries) == 0 {
		return Artifact{}, fmt.Errorf("%w: %s is empty", ErrMissingArtifact, dir)
	}
	newest := entries[0]
	if !newest.info.Mode().IsRegular() {
		return Artifact{}, fmt.Errorf("%w: newest entry %s is not a regular file", ErrMissingArtifact, newest.path)
	}
	return newest.artifact(), nil
}

// ResolveArtifact returns the newest completed file that is new or replaced
// since before and matches pattern. An empty pattern matches every name.
func ResolveArtifact(dir string, before Snapshot, pattern string, suffixes []string) (Artifact, error) {
	var matcher glob.Glob
	if pattern != "" {
		g, err := glob.Compile(pattern)
		if err != nil {
			return Artifact{}, fmt.Errorf("invalid artifact pattern %q: %w", pattern, err)
		}
		matcher = g
	}

	entries, err := listEntries(dir)
	if err != nil {
		return Artifact{}, err
	}

	var fresh []string
	for _, e := range entries {
		name := e.info.Name()
		if !before.fresh(e) || isPartial(name, suffixes) || !e.info.Mode().IsRegular() {
			continue
		}
		if matcher == nil || matcher.Match(name) {
			return e.artifact(), nil
		}
		fresh = append(fresh, name)
	}

	if len(fresh) == 0 {
		return Artifact{}, fmt.Errorf("%w: no new file appeared in %s", ErrMissingArtifact, dir)
	}
	return Artifact{}, fmt.Errorf("%w: new file(s) %s do not match %q", ErrMissingArtifact, strings.Join(fresh, ", "), pattern)
}
