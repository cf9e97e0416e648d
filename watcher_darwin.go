//go:build darwin

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// KqueueWatcher watches files with kqueue vnode events.
type KqueueWatcher struct {
	kq       int
	mu       sync.Mutex
	watchMap map[int]string
	debounce *debouncer
	stopChan chan struct{}
	once     sync.Once
	verbose  bool
}

// NewFileWatcher returns the native watcher for this platform.
func NewFileWatcher(debounce time.Duration, verbose bool, onChange func(string)) (Watcher, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, fmt.Errorf("kqueue failed: %w", err)
	}

	return &KqueueWatcher{
		kq:       kq,
		watchMap: make(map[int]string),
		debounce: newDebouncer(debounce, onChange),
		stopChan: make(chan struct{}),
		verbose:  verbose,
	}, nil
}

func (w *KqueueWatcher) AddFile(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	fd, err := unix.Open(absPath, unix.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", absPath, err)
	}

	event := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_VNODE,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
		Fflags: unix.NOTE_WRITE | unix.NOTE_ATTRIB,
	}
	if _, err := unix.Kevent(w.kq, []unix.Kevent_t{event}, nil, nil); err != nil {
		unix.Close(fd)
		return fmt.Errorf("failed to add kevent for %s: %w", absPath, err)
	}

	w.mu.Lock()
	w.watchMap[fd] = absPath
	w.mu.Unlock()
	return nil
}

func (w *KqueueWatcher) Watch() {
	events := make([]unix.Kevent_t, 10)
	timeout := unix.NsecToTimespec(int64(100 * time.Millisecond))

	for {
		select {
		case <-w.stopChan:
			return
		default:
		}

		n, err := unix.Kevent(w.kq, nil, events, &timeout)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if w.verbose {
				fmt.Fprintf(os.Stderr, "Error reading kevent: %v\n", err)
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}

		for _, event := range events[:n] {
			w.mu.Lock()
			path := w.watchMap[int(event.Ident)]
			w.mu.Unlock()
			if path != "" {
				w.debounce.trigger(path)
			}
		}
	}
}

// Close stops Watch and releases the kqueue and watched descriptors.
func (w *KqueueWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.stopChan)
		w.debounce.stop()

		w.mu.Lock()
		for fd := range w.watchMap {
			unix.Close(fd)
		}
		w.mu.Unlock()
		err = unix.Close(w.kq)
	})
	return err
}
