package rubric

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads a Source when rubric files change. Rapid editor
// write bursts are debounced before reloading.
type Watcher struct {
	source   *Source
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher over the source's rubric directory
func NewWatcher(source *Source) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if source.dir != "" {
		if err := fw.Add(source.dir); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return &Watcher{
		source:   source,
		watcher:  fw,
		debounce: 500 * time.Millisecond,
	}, nil
}

// Run processes filesystem events until the context is cancelled
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".toml") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("rubric watcher: %v", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if err := w.source.Load(); err != nil {
			log.Printf("rubric reload failed, keeping previous config: %v", err)
		} else {
			log.Printf("rubric configuration reloaded")
		}
	})
}
