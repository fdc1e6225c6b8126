package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const changeDebounce = 50 * time.Millisecond

// FileStore keeps all keys in one JSON object on disk. Every write replaces the
// file atomically, so readers in other processes never see a partial document.
// Each load+save runs under a flock on a sibling ".lock" file, so writers in
// different processes serialize instead of overwriting each other.
type FileStore struct {
	path string
	log  *zap.Logger
	mu   sync.Mutex
}

// NewFileStore creates the parent directory if needed. The file itself appears on first write.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FileStore{path: path, log: logger}, nil
}

func (s *FileStore) Path() string { return s.path }

// locked runs fn holding the in-process mutex and the file lock.
func (s *FileStore) locked(exclusive bool, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := lockFile(s.path+".lock", exclusive)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

func (s *FileStore) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}
	m := map[string]string{}
	if len(raw) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode store %s: %w", s.path, err)
	}
	return m, nil
}

func (s *FileStore) save(m map[string]string) error {
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".store-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, key string) (v string, ok bool, err error) {
	err = s.locked(false, func() error {
		m, err := s.load()
		if err != nil {
			return err
		}
		v, ok = m[key]
		return nil
	})
	return v, ok, err
}

func (s *FileStore) Set(_ context.Context, key, value string) error {
	return s.locked(true, func() error {
		m, err := s.load()
		if err != nil {
			return err
		}
		m[key] = value
		return s.save(m)
	})
}

func (s *FileStore) Remove(_ context.Context, key string) error {
	return s.locked(true, func() error {
		m, err := s.load()
		if err != nil {
			return err
		}
		if _, ok := m[key]; !ok {
			return nil
		}
		delete(m, key)
		return s.save(m)
	})
}

// Update rewrites one key from its current value while holding the file lock,
// so no other process can write between the read and the write.
func (s *FileStore) Update(_ context.Context, key string, fn UpdateFunc) error {
	return s.locked(true, func() error {
		m, err := s.load()
		if err != nil {
			return err
		}
		old, ok := m[key]
		next, changed, err := fn(old, ok)
		if err != nil || !changed {
			return err
		}
		m[key] = next
		return s.save(m)
	})
}

// Changes watches the store's directory. Atomic replacement swaps the inode, so
// watching the file itself would go quiet after the first write.
func (s *FileStore) Changes(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	out := make(chan struct{}, 1)
	go s.watch(ctx, watcher, out)
	return out, nil
}

func (s *FileStore) watch(ctx context.Context, watcher *fsnotify.Watcher, out chan<- struct{}) {
	defer close(out)
	defer watcher.Close()

	base := filepath.Base(s.path)
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
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) {
				continue
			}
			s.log.Debug("store file event", zap.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(changeDebounce)
			} else {
				timer.Reset(changeDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			select {
			case out <- struct{}{}:
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("fsnotify error", zap.Error(err))
		}
	}
}
