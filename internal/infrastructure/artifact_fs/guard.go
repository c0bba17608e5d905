package artifact_fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/davarch/notarize/internal/domain"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type Guard struct {
	log *zap.Logger
}

func New(l *zap.Logger) *Guard {
	if l == nil {
		l = zap.NewNop()
	}
	return &Guard{log: l}
}

// Validate requires an existing, readable regular file.
func (g *Guard) Validate(a domain.Artifact) error {
	if a.Path == "" {
		return domain.Errorf(domain.KindUsage, "artifact", "empty path")
	}

	fi, err := os.Stat(a.Path)
	if err != nil {
		return domain.UsageError("artifact", err)
	}
	if !fi.Mode().IsRegular() {
		return domain.Errorf(domain.KindUsage, "artifact", "%s is not a regular file", a.Path)
	}

	f, err := os.Open(a.Path)
	if err != nil {
		return domain.UsageError("artifact", err)
	}
	_ = f.Close()
	return nil
}

// Watch observes the artifact's directory and remembers the first rename,
// removal, replacement or write of the artifact itself.
func (g *Guard) Watch(a domain.Artifact) (domain.ArtifactWatch, error) {
	abs, err := filepath.Abs(a.Path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w := &watch{fw: fw, path: abs, log: g.log, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

type watch struct {
	fw   *fsnotify.Watcher
	path string
	log  *zap.Logger
	done chan struct{}

	mu      sync.Mutex
	changed error
	once    sync.Once
}

func (w *watch) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename|fsnotify.Create|fsnotify.Write) != 0 {
				w.mark(fmt.Errorf("%s: %s", ev.Op, w.path))
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("fsnotify error", zap.Error(err))
		}
	}
}

func (w *watch) mark(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.changed == nil {
		w.log.Warn("artifact changed during notarization", zap.Error(err))
		w.changed = err
	}
}

// Changed reports a change seen since Watch, or a missing file.
func (w *watch) Changed() error {
	w.mu.Lock()
	err := w.changed
	w.mu.Unlock()
	if err != nil {
		return err
	}

	if _, err := os.Stat(w.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("artifact %s no longer exists", w.path)
		}
		return err
	}
	return nil
}

func (w *watch) Close() error {
	var err error
	w.once.Do(func() {
		err = w.fw.Close()
		<-w.done
	})
	return err
}
