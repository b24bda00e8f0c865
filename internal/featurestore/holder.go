package featurestore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"retention-proxy/internal/common/logger"
	"retention-proxy/internal/common/metrics"
)

// DefaultReloadDebounce coalesces bursts of file events into one reload.
const DefaultReloadDebounce = 250 * time.Millisecond

// Holder publishes the current Store. Reloads replace the whole Store with an
// atomic swap; a Store is never modified in place, so a lookup always sees one
// consistent snapshot.
type Holder struct {
	current atomic.Pointer[Store]
	logger  logger.Logger
}

func NewHolder(initial *Store, log logger.Logger) *Holder {
	if initial == nil {
		initial = Empty()
	}
	h := &Holder{logger: log}
	h.Swap(initial)
	return h
}

// Store returns the current snapshot.
func (h *Holder) Store() *Store {
	return h.current.Load()
}

// Swap installs s and returns the previous snapshot.
func (h *Holder) Swap(s *Store) *Store {
	old := h.current.Swap(s)
	metrics.UsersLoaded.Set(float64(s.Len()))
	return old
}

func (h *Holder) Lookup(id int64) (Record, bool) {
	return h.Store().Lookup(id)
}

func (h *Holder) IDs() []int64 {
	return h.Store().IDs()
}

func (h *Holder) Len() int {
	return h.Store().Len()
}

// Reload loads src and swaps it in. On failure the previous store stays in
// place; a broken dataset push never empties a serving process.
func (h *Holder) Reload(ctx context.Context, src Source) error {
	store, err := Load(ctx, src)
	if err != nil {
		h.logger.Warn("dataset reload failed, keeping previous store", map[string]interface{}{
			"source":      src.Name(),
			"error":       err.Error(),
			"usersLoaded": h.Len(),
		})
		return err
	}

	previous := h.Swap(store)
	h.logger.Info("dataset reloaded", map[string]interface{}{
		"source":        src.Name(),
		"usersLoaded":   store.Len(),
		"previousUsers": previous.Len(),
	})
	return nil
}

// Watch reloads src whenever path is written, created or renamed into place.
// It watches the parent directory so atomic rename-based updates are seen.
// Watch blocks until ctx is done.
func (h *Holder) Watch(ctx context.Context, path string, src Source, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultReloadDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	dir := filepath.Dir(target)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	h.logger.Info("watching dataset for changes", map[string]interface{}{"path": target})

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			_ = h.Reload(ctx, src)

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Warn("dataset watcher error", map[string]interface{}{"error": werr.Error()})
		}
	}
}
