package voices

import (
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates a library's index when its directory changes on disk,
// so voices imported by external tooling show up without a restart.
type Watcher struct {
	library *DirLibrary
	fw      *fsnotify.Watcher
	done    chan struct{}
}

// Watch starts watching the library directory. The directory must exist.
func Watch(library *DirLibrary) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(library.Root()); err != nil {
		_ = fw.Close()
		return nil, err
	}

	w := &Watcher{library: library, fw: fw, done: make(chan struct{})}
	go w.loop()
	log.Debug("Watching voice library", "dir", library.Root())
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.library.Invalidate()
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Warn("Voice library watch error", "error", err)
		}
	}
}

// Close stops the watcher and waits for its loop to exit.
func (w *Watcher) Close() error {
	err := w.fw.Close()
	<-w.done
	return err
}
