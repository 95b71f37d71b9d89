package interactive

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

var ErrWatcherClosed = errors.New("texture watcher closed")

// TextureWatcher reports edits of bitmap files. Directories holding the files
// are watched so that editors replacing a file are noticed too.
type TextureWatcher struct {
	w        *fsnotify.Watcher
	onChange func(path string)
	log      *slog.Logger

	mu     sync.Mutex
	files  map[string]bool
	dirs   map[string]bool
	closed bool
	done   chan struct{}
}

// NewTextureWatcher starts a watcher calling onChange with the path of every
// watched file written or created. onChange runs on the watcher's goroutine.
// A nil logger discards watch errors.
func NewTextureWatcher(onChange func(path string), log *slog.Logger) (*TextureWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	tw := &TextureWatcher{
		w:        w,
		onChange: onChange,
		log:      log,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		done:     make(chan struct{}),
	}
	go tw.run()
	return tw, nil
}

// Watch adds the file at path. Watching a file twice is a no-op.
func (tw *TextureWatcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.closed {
		return ErrWatcherClosed
	}
	dir := filepath.Dir(abs)
	if !tw.dirs[dir] {
		if err := tw.w.Add(dir); err != nil {
			return err
		}
		tw.dirs[dir] = true
	}
	tw.files[abs] = true
	return nil
}

// Watched returns the number of watched files.
func (tw *TextureWatcher) Watched() int {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return len(tw.files)
}

// Close stops the watcher and waits for its goroutine to exit. No callback
// runs after Close returns.
func (tw *TextureWatcher) Close() error {
	tw.mu.Lock()
	if tw.closed {
		tw.mu.Unlock()
		return nil
	}
	tw.closed = true
	tw.mu.Unlock()
	err := tw.w.Close()
	<-tw.done
	return err
}

func (tw *TextureWatcher) run() {
	defer close(tw.done)
	for {
		select {
		case event, ok := <-tw.w.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			path := filepath.Clean(event.Name)
			tw.mu.Lock()
			watched := tw.files[path] && !tw.closed
			tw.mu.Unlock()
			if watched {
				tw.log.Debug("texture changed", slog.String("path", path))
				tw.onChange(path)
			}
		case err, ok := <-tw.w.Errors:
			if !ok {
				return
			}
			tw.log.Warn("texture watcher", slog.Any("err", err))
		}
	}
}
