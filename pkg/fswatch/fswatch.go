// Package fswatch watches a room's working directory for changes made
// outside the editor (typically by a shell command in the room's PTY) and
// emits debounced, classified events. It follows the two-stage design of
// the pack's events.StartFSWatcher reference: a raw fsnotify event
// channel feeding a ticker-driven debounce stage, generalized here to the
// 100ms poll / 500ms stability contract this domain requires.
package fswatch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Kind classifies a debounced, stabilized filesystem event.
type Kind int

const (
	KindFileAdded Kind = iota
	KindFileChanged
	KindFileRemoved
	KindDirAdded
	KindDirRemoved
)

// Event is a single classified change, with Path relative to the
// watcher's root using '/' as separator.
type Event struct {
	Kind Kind
	Path string
}

// defaultPollInterval and defaultStabilityWindow are used by New when the
// caller doesn't need to override the debounce timing.
const (
	defaultPollInterval    = 100 * time.Millisecond
	defaultStabilityWindow = 500 * time.Millisecond
)

// Watcher watches root recursively (fsnotify is not recursive on its
// own, so directories are added individually as they're discovered) and
// publishes stabilized Events on its channel.
type Watcher struct {
	root string
	fsw  *fsnotify.Watcher

	pollInterval    time.Duration
	stabilityWindow time.Duration

	events chan Event
	stopCh chan struct{}
	doneCh chan struct{}

	mu      sync.Mutex
	watched map[string]struct{}

	pending   map[string]pendingEvent
	pendingMu sync.Mutex
}

type pendingEvent struct {
	op       fsnotify.Op
	wasDir   bool
	lastSeen time.Time
}

// New creates a watcher rooted at root, using the package's default
// debounce timing. Dot-prefixed entries are ignored and the initial
// directory enumeration does not emit events.
func New(root string) (*Watcher, error) {
	return NewWithTiming(root, defaultPollInterval, defaultStabilityWindow)
}

// NewWithTiming creates a watcher rooted at root with an explicit poll
// interval (how often pending events are flushed) and stability window
// (how long a path must be quiet before its change is reported).
func NewWithTiming(root string, pollInterval, stabilityWindow time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:            root,
		fsw:             fsw,
		pollInterval:    pollInterval,
		stabilityWindow: stabilityWindow,
		events:          make(chan Event, 64),
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
		watched:         make(map[string]struct{}),
		pending:         make(map[string]pendingEvent),
	}

	if err := w.seed(root); err != nil {
		fsw.Close()
		return nil, err
	}

	return w, nil
}

// seed walks root adding a watch for every non-dot-prefixed directory,
// without emitting events for what it finds.
func (w *Watcher) seed(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		w.addWatch(path)
		return nil
	})
}

func (w *Watcher) addWatch(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.watched[dir]; ok {
		return
	}
	if err := w.fsw.Add(dir); err != nil {
		return
	}
	w.watched[dir] = struct{}{}
}

// removeWatch drops dir from the watch set if it was being watched (i.e.
// it was a directory) and reports whether it was.
func (w *Watcher) removeWatch(dir string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.watched[dir]; !ok {
		return false
	}
	delete(w.watched, dir)
	w.fsw.Remove(dir)
	return true
}

// Events returns the channel of stabilized, classified events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins the raw-event and debounce-ticker goroutines. Call Close
// to stop them.
func (w *Watcher) Start() {
	go w.consumeRaw()
	go w.debounceLoop()
}

// Close stops the watcher and releases its OS resources.
func (w *Watcher) Close() error {
	close(w.stopCh)
	<-w.doneCh
	return w.fsw.Close()
}

func (w *Watcher) relPath(abs string) (string, bool) {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || rel == "." {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func isDotPrefixed(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func (w *Watcher) consumeRaw() {
	defer close(w.doneCh)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleRaw(ev)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) handleRaw(ev fsnotify.Event) {
	rel, ok := w.relPath(ev.Name)
	if !ok || isDotPrefixed(rel) {
		return
	}

	wasDir := false
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.addWatch(ev.Name)
		}
	}
	if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		wasDir = w.removeWatch(ev.Name)
	}

	w.pendingMu.Lock()
	existing := w.pending[rel]
	op := ev.Op
	// A write or chmod following a pending create is still reported as a create.
	if existing.op&fsnotify.Create != 0 && ev.Op&(fsnotify.Write|fsnotify.Chmod) != 0 {
		op |= fsnotify.Create
	}
	w.pending[rel] = pendingEvent{op: op, wasDir: wasDir || existing.wasDir, lastSeen: time.Now()}
	w.pendingMu.Unlock()
}

func (w *Watcher) debounceLoop() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.flushStable()
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) flushStable() {
	now := time.Now()

	w.pendingMu.Lock()
	var ready []string
	var readyEvents []pendingEvent
	for path, pe := range w.pending {
		if now.Sub(pe.lastSeen) >= w.stabilityWindow {
			ready = append(ready, path)
			readyEvents = append(readyEvents, pe)
		}
	}
	for _, path := range ready {
		delete(w.pending, path)
	}
	w.pendingMu.Unlock()

	for i, rel := range ready {
		w.emit(rel, readyEvents[i])
	}
}

func (w *Watcher) emit(rel string, pe pendingEvent) {
	abs := filepath.Join(w.root, filepath.FromSlash(rel))
	info, statErr := os.Stat(abs)

	var kind Kind
	switch {
	case pe.op&fsnotify.Create == fsnotify.Create:
		if statErr == nil && info.IsDir() {
			kind = KindDirAdded
		} else {
			kind = KindFileAdded
		}
	case pe.op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if pe.wasDir {
			kind = KindDirRemoved
		} else {
			kind = KindFileRemoved
		}
	case pe.op&(fsnotify.Write|fsnotify.Chmod) != 0:
		if statErr == nil && info.IsDir() {
			return
		}
		kind = KindFileChanged
	default:
		return
	}

	select {
	case w.events <- Event{Kind: kind, Path: rel}:
	case <-w.stopCh:
	}
}
