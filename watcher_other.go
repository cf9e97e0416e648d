//go:build !linux && !darwin

package main

import "time"

// NewFileWatcher falls back to polling on platforms without a native watcher.
func NewFileWatcher(debounce time.Duration, verbose bool, onChange func(string)) (Watcher, error) {
	return NewPollWatcher(500*time.Millisecond, debounce, onChange), nil
}
