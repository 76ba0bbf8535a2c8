package invoker

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Settler bridges the gap between the scraper exiting and its result file
// being visible to readers.
type Settler interface {
	// Arm is called before the scraper starts.
	Arm() Handoff
}

// Handoff is one armed settle. Wait is called after a clean or non-zero
// exit; Close is always called.
type Handoff interface {
	Wait()
	Close()
}

// DelaySettler sleeps a fixed duration after exit. It narrows the
// read-after-write race but does not eliminate it.
type DelaySettler struct {
	Delay time.Duration
}

// Arm implements Settler.
func (s DelaySettler) Arm() Handoff { return delayHandoff(s.Delay) }

type delayHandoff time.Duration

func (d delayHandoff) Wait() {
	if d > 0 {
		time.Sleep(time.Duration(d))
	}
}

func (delayHandoff) Close() {}

// WatchSettler watches the result file and returns as soon as a write to it
// has been observed, or after Max, whichever comes first.
type WatchSettler struct {
	Path string
	Max  time.Duration
}

// Arm implements Settler. It falls back to a plain delay when the result
// directory cannot be watched.
func (s WatchSettler) Arm() Handoff {
	target := filepath.Clean(s.Path)
	dir := filepath.Dir(target)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("settle: cannot create result directory, using delay", "dir", dir, "error", err)
		return delayHandoff(s.Max)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("settle: cannot create watcher, using delay", "error", err)
		return delayHandoff(s.Max)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		slog.Warn("settle: cannot watch result directory, using delay", "dir", dir, "error", err)
		return delayHandoff(s.Max)
	}

	h := &watchHandoff{
		fw:   fw,
		max:  s.Max,
		seen: make(chan struct{}),
		done: make(chan struct{}),
	}
	go h.loop(target)
	return h
}

type watchHandoff struct {
	fw       *fsnotify.Watcher
	max      time.Duration
	seen     chan struct{}
	seenOnce sync.Once
	done     chan struct{}
	stopOnce sync.Once
}

func (h *watchHandoff) loop(target string) {
	for {
		select {
		case event, ok := <-h.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				h.seenOnce.Do(func() { close(h.seen) })
			}
		case err, ok := <-h.fw.Errors:
			if !ok {
				return
			}
			slog.Debug("settle: watcher error", "error", err)
		case <-h.done:
			return
		}
	}
}

func (h *watchHandoff) Wait() {
	timer := time.NewTimer(h.max)
	defer timer.Stop()
	select {
	case <-h.seen:
	case <-timer.C:
		slog.Debug("settle: no write observed before deadline", "max", h.max)
	}
}

func (h *watchHandoff) Close() {
	h.stopOnce.Do(func() {
		close(h.done)
		_ = h.fw.Close()
	})
}
