package tui

import (
	"time"

	"github.com/fsnotify/fsnotify"

	"sdrig/internal/catalog"
	"sdrig/internal/workspace"
)

// debounce is how long the watcher waits for the filesystem to go quiet
// before signalling a refresh. Downloads touch files constantly.
const debounce = 200 * time.Millisecond

// watcher coalesces fsnotify events on the workspace into single refresh
// ticks on C.
type watcher struct {
	fs   *fsnotify.Watcher
	C    chan struct{}
	stop chan struct{}
	done chan struct{}
}

// newWatcher watches the metadata dir and the model tree. fsnotify does not
// recurse, so each category dir is added on its own.
func newWatcher(ws *workspace.Workspace) (*watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dirs := []string{ws.MetaDir(), ws.ModelsDir(), ws.WebUIsDir()}
	for _, cat := range catalog.Categories() {
		dirs = append(dirs, ws.ModelDir(cat))
	}
	for _, dir := range dirs {
		// Missing dirs (doctor will complain) just aren't watched.
		_ = fs.Add(dir)
	}

	w := &watcher{
		fs:   fs,
		C:    make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *watcher) run() {
	defer close(w.done)
	// Closing C unblocks a dashboard waiting on the next change.
	defer close(w.C)
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case _, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				fire = timer.C
			} else {
				timer.Reset(debounce)
			}
		case _, ok := <-w.fs.Errors:
			if !ok {
				return
			}
		case <-fire:
			timer = nil
			fire = nil
			select {
			case w.C <- struct{}{}:
			default:
			}
		case <-w.stop:
			return
		}
	}
}

// Close stops the loop and the underlying watcher.
func (w *watcher) Close() {
	close(w.stop)
	w.fs.Close()
	<-w.done
}
