//go:build linux

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// watchMask selects the events that mean a file changed or was replaced.
// IN_IGNORED is always delivered when a watch goes away.
const watchMask = unix.IN_MODIFY | unix.IN_CLOSE_WRITE | unix.IN_ATTRIB | unix.IN_MOVE_SELF | unix.IN_DELETE_SELF

// InotifyWatcher watches files with inotify. Editors that save by renaming a
// new file over the old one drop the watch; those paths are re-added once the
// replacement exists.
type InotifyWatcher struct {
	fd       int
	mu       sync.Mutex
	watchMap map[int]string
	pending  map[string]bool
	debounce *debouncer
	stopChan chan struct{}
	once     sync.Once
	verbose  bool
}

// NewFileWatcher returns the native watcher for this platform.
func NewFileWatcher(debounce time.Duration, verbose bool, onChange func(string)) (Watcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify_init failed: %w", err)
	}

	return &InotifyWatcher{
		fd:       fd,
		watchMap: make(map[int]string),
		pending:  make(map[string]bool),
		debounce: newDebouncer(debounce, onChange),
		stopChan: make(chan struct{}),
		verbose:  verbose,
	}, nil
}

func (w *InotifyWatcher) AddFile(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	wd, err := unix.InotifyAddWatch(w.fd, absPath, watchMask)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", absPath, err)
	}

	w.mu.Lock()
	w.watchMap[wd] = absPath
	w.mu.Unlock()
	return nil
}

func (w *InotifyWatcher) Watch() {
	buf := make([]byte, (unix.SizeofInotifyEvent+unix.NAME_MAX+1)*16)

	for {
		select {
		case <-w.stopChan:
			return
		default:
		}
		w.rewatchPending()

		n, err := unix.Read(w.fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				time.Sleep(50 * time.Millisecond)
				continue
			}
			if w.verbose {
				fmt.Fprintf(os.Stderr, "Error reading inotify events: %v\n", err)
			}
			time.Sleep(50 * time.Millisecond)
			continue
		}

		offset := 0
		for offset+unix.SizeofInotifyEvent <= n {
			event := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
			offset += unix.SizeofInotifyEvent + int(event.Len)

			w.handleEvent(int(event.Wd), event.Mask)
		}
	}
}

func (w *InotifyWatcher) handleEvent(wd int, mask uint32) {
	w.mu.Lock()
	path := w.watchMap[wd]
	switch {
	case mask&unix.IN_IGNORED != 0:
		// The kernel removed the watch: the file was deleted or replaced.
		delete(w.watchMap, wd)
		if path != "" {
			w.pending[path] = true
		}
	case mask&unix.IN_MOVE_SELF != 0:
		// The watch follows the moved inode, not the path. Removing it
		// produces IN_IGNORED, which re-adds the path.
		unix.InotifyRmWatch(w.fd, uint32(wd))
	}
	w.mu.Unlock()

	if path != "" && mask&(watchMask|unix.IN_IGNORED) != 0 {
		w.debounce.trigger(path)
	}
}

// rewatchPending re-adds watches for replaced files that exist again.
func (w *InotifyWatcher) rewatchPending() {
	w.mu.Lock()
	var added []string
	for path := range w.pending {
		wd, err := unix.InotifyAddWatch(w.fd, path, watchMask)
		if err != nil {
			continue
		}
		w.watchMap[wd] = path
		delete(w.pending, path)
		added = append(added, path)
	}
	w.mu.Unlock()

	for _, path := range added {
		w.debounce.trigger(path)
	}
}

// Close stops Watch and releases the inotify descriptor.
func (w *InotifyWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.stopChan)
		w.debounce.stop()
		err = unix.Close(w.fd)
	})
	return err
}
