package main

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultDebounce is how long a watcher waits after the last change to a file
// before reporting it. Editors often write a file in several steps.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reports changes to a set of files. Watch blocks until Close is
// called.
type Watcher interface {
	AddFile(path string) error
	Watch()
	Close() error
}

// debouncer coalesces bursts of change events per path into one callback.
type debouncer struct {
	mu       sync.Mutex
	delay    time.Duration
	timers   map[string]*time.Timer
	onChange func(string)
}

func newDebouncer(delay time.Duration, onChange func(string)) *debouncer {
	return &debouncer{
		delay:    delay,
		timers:   make(map[string]*time.Timer),
		onChange: onChange,
	}
}

func (d *debouncer) trigger(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, exists := d.timers[path]; exists {
		timer.Stop()
	}
	d.timers[path] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		delete(d.timers, path)
		d.mu.Unlock()
		d.onChange(path)
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for path, timer := range d.timers {
		timer.Stop()
		delete(d.timers, path)
	}
}

// PollWatcher detects changes by comparing modification times at a fixed
// interval. It works everywhere and is the fallback on platforms without a
// native watcher.
type PollWatcher struct {
	mu       sync.Mutex
	interval time.Duration
	modTimes map[string]time.Time
	debounce *debouncer
	stopChan chan struct{}
	once     sync.Once
}

func NewPollWatcher(interval, debounce time.Duration, onChange func(string)) *PollWatcher {
	return &PollWatcher{
		interval: interval,
		modTimes: make(map[string]time.Time),
		debounce: newDebouncer(debounce, onChange),
		stopChan: make(chan struct{}),
	}
}

func (w *PollWatcher) AddFile(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.modTimes[absPath] = info.ModTime()
	w.mu.Unlock()
	return nil
}

func (w *PollWatcher) Watch() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.checkFiles()
		case <-w.stopChan:
			return
		}
	}
}

func (w *PollWatcher) checkFiles() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, lastMod := range w.modTimes {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if !info.ModTime().Equal(lastMod) {
			w.modTimes[path] = info.ModTime()
			w.debounce.trigger(path)
		}
	}
}

func (w *PollWatcher) Close() error {
	w.once.Do(func() {
		close(w.stopChan)
		w.debounce.stop()
	})
	return nil
}
