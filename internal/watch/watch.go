// Package watch supplements the facade's caller-driven enqueue with an
// fsnotify-driven hot-folder ingestion loop: any recognized media file
// dropped into a watched directory is enqueued under one preset and tier.
// It stays a thin adapter outside the core: every admission decision still
// goes through Facade.Enqueue, so duplicate-path and preset-validity rules
// are enforced in exactly one place.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/backmassage/mxcore/internal/catalog"
	"github.com/backmassage/mxcore/internal/job"
)

// settleDelay is how long a newly seen file must go without a further
// write event before it is considered done being written and safe to
// enqueue.
const settleDelay = 2 * time.Second

// Enqueuer is the subset of the Facade's API the watcher needs. Keeping it
// narrow (rather than depending on *facade.Facade directly) avoids an
// import cycle and keeps this package trivially testable with a stub.
type Enqueuer interface {
	Enqueue(path, presetID string, tier catalog.Tier) (job.ID, error)
}

// mediaExtensions is the set of file extensions the watcher considers a
// candidate source, independent of which preset will later process it.
var mediaExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".webm": true, ".avi": true,
	".m4v": true, ".flv": true, ".ts": true, ".wmv": true,
	".mp3": true, ".flac": true, ".wav": true, ".m4a": true, ".aac": true,
	".gif": true, ".png": true, ".jpg": true, ".jpeg": true, ".webp": true,
}

// Watcher ingests files appearing under a directory tree and enqueues them.
type Watcher struct {
	fsw      *fsnotify.Watcher
	enqueuer Enqueuer
	presetID string
	tier     catalog.Tier

	mu      sync.Mutex
	timers  map[string]*time.Timer
}

// New creates a Watcher that enqueues every recognized file appearing
// under root (recursively) against presetID/tier. Call Start to begin.
func New(enqueuer Enqueuer, presetID string, tier catalog.Tier) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:      fsw,
		enqueuer: enqueuer,
		presetID: presetID,
		tier:     tier,
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Start adds root (and every subdirectory beneath it) to the watch set and
// runs the ingestion loop until ctx is canceled. Existing files already
// present under root at startup are ingested immediately, mirroring a
// directory-batch run; only files that appear afterward go through the
// settle-delay debounce.
func (w *Watcher) Start(ctx context.Context, root string) error {
	if err := w.addTree(root); err != nil {
		return err
	}

	existing, err := w.scanExisting(root)
	if err != nil {
		log.Warn().Err(err).Str("root", root).Msg("watch: initial scan failed")
	}
	for _, path := range existing {
		w.enqueue(path)
	}

	go w.loop(ctx)
	return nil
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) addTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) scanExisting(root string) ([]string, error) {
	var out []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && isMedia(path) {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

func (w *Watcher) loop(ctx context.Context) {
	defer func() { _ = w.fsw.Close() }()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("watch: fsnotify error")
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(ev.Name); err != nil {
				log.Warn().Err(err).Str("path", ev.Name).Msg("watch: failed to add new subdirectory")
			}
			return
		}
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if !isMedia(ev.Name) {
		return
	}
	w.debounce(ev.Name)
}

// debounce resets a per-path settle timer on every write event, so a file
// is only enqueued once settleDelay has passed without a further write.
// A copy in progress shows up as a burst of write events; acting on the
// first one would hand ffprobe a truncated file.
func (w *Watcher) debounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(settleDelay, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.enqueue(path)
	})
}

func (w *Watcher) enqueue(path string) {
	id, err := w.enqueuer.Enqueue(path, w.presetID, w.tier)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("watch: enqueue rejected")
		return
	}
	log.Info().Str("job_id", string(id)).Str("path", path).Msg("watch: ingested")
}

func isMedia(path string) bool {
	return mediaExtensions[strings.ToLower(filepath.Ext(path))]
}
