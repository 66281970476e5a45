package rebuild

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow batches rapid database writes into one reload.
const debounceWindow = 2 * time.Second

// WatchDB monitors the graph database file and invokes onChange after writes
// settle. The parent directory is watched rather than the file itself so
// atomic replaces (write temp, rename over) are still observed. Blocks until
// the context is cancelled.
func WatchDB(ctx context.Context, dbPath string, onChange func(context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(dbPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	base := filepath.Base(dbPath)

	debounce := time.NewTimer(debounceWindow)
	debounce.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !dbEvent(event.Name, base) {
				continue
			}
			pending = true
			debounce.Reset(debounceWindow)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)

		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false
			if err := onChange(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Reload error: %v\n", err)
			}
		}
	}
}

// dbEvent reports whether an event path belongs to the database: the file
// itself or its WAL/journal sidecars.
func dbEvent(name, base string) bool {
	got := filepath.Base(name)
	return got == base || got == base+"-wal" || got == base+"-shm" || got == base+"-journal"
}
