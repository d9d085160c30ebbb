// Package watch re-runs a callback when JSONL record outputs change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dotbot-tools/rxtrace/internal/ports"
)

// DefaultDebounce is the quiet period after the last change before the
// callback runs. An ingestor appends many lines per second, so changes
// arrive in bursts.
const DefaultDebounce = 500 * time.Millisecond

// Follower watches output files and directories.
type Follower struct {
	debounce time.Duration
	ext      string
	logger   ports.Logger

	dirs  map[string]bool // watched directories, every matching file counts
	files map[string]bool // watched single files

	mu    sync.Mutex
	timer *time.Timer
}

// NewFollower creates a follower for paths. Directories match every file
// with extension ext; files match themselves.
func NewFollower(paths []string, ext string, debounce time.Duration, logger ports.Logger) (*Follower, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	f := &Follower{
		debounce: debounce,
		ext:      ext,
		logger:   logger,
		dirs:     make(map[string]bool),
		files:    make(map[string]bool),
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			f.dirs[abs] = true
		} else {
			f.files[abs] = true
		}
	}
	if len(f.dirs)+len(f.files) == 0 {
		return nil, fmt.Errorf("watch: no paths")
	}
	return f, nil
}

// Run calls onChange after every burst of changes until ctx is done.
// onChange runs on the calling goroutine, never concurrently with itself.
func (f *Follower) Run(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	watched := make(map[string]bool)
	for d := range f.dirs {
		watched[d] = true
	}
	for p := range f.files {
		// editors and rotations replace files, so watch the parent
		watched[filepath.Dir(p)] = true
	}
	for d := range watched {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}

	fire := make(chan struct{}, 1)
	defer f.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !f.matches(event.Name) {
				continue
			}
			f.schedule(fire)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("watcher error", ports.Err(err))

		case <-fire:
			onChange()
		}
	}
}

func (f *Follower) matches(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	if f.files[abs] {
		return true
	}
	return f.dirs[filepath.Dir(abs)] && strings.HasSuffix(abs, f.ext)
}

// schedule restarts the debounce timer.
func (f *Follower) schedule(fire chan<- struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.debounce, func() {
		select {
		case fire <- struct{}{}:
		default:
		}
	})
}

func (f *Follower) stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
	}
}
