// Package watch reports changes to project files so a task can be rerun.
package watch

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bailuo/redspot/internal/logging"
)

var log = logging.New("watch")

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 200 * time.Millisecond

// Watcher coalesces file system events on a set of paths into change
// notifications.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	watched map[string]bool

	changes chan string
	done    chan struct{}
	wg      sync.WaitGroup
}

// New starts a watcher. Changes are delivered on Changes once no further
// event has arrived for debounce.
func New(debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		watcher:  fw,
		debounce: debounce,
		watched:  make(map[string]bool),
		changes:  make(chan string, 1),
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Add watches path. Files are watched through their directory so editors
// that replace files on save are still noticed; directories are watched
// directly. Missing paths are skipped.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debugf("not watching missing path %s", abs)
			return nil
		}
		return err
	}

	dir := abs
	if !info.IsDir() {
		dir = filepath.Dir(abs)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.watched[abs] = true
	if w.watched[dir+string(filepath.Separator)] {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.watched[dir+string(filepath.Separator)] = true
	return nil
}

// Changes delivers the path of the last changed file after each quiet period.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

func (w *Watcher) relevant(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watched[abs] {
		return true
	}
	// Anything inside a watched directory counts.
	return w.watched[filepath.Dir(abs)]
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time
	last := ""

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !w.relevant(event.Name) {
				continue
			}
			last = event.Name
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			select {
			case w.changes <- last:
			default:
				// A change is already pending.
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("watch error: %v", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	select {
	case <-w.done:
		return nil
	default:
	}
	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
