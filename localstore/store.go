// Package localstore is the client's key-value persistence: the notes mirror,
// reminder records, the theme flag and the session token all live here.
package localstore

import (
	"context"
	"fmt"
	"sync"

	"stickyboard/config"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Well-known keys.
const (
	KeyNotes     = "notes"
	KeyReminders = "note_reminders"
	KeyDarkMode  = "darkMode"
	KeyToken     = "auth_token"
	KeyEmail     = "auth_email"
)

// Store is a string key-value store. Get reports false when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// UpdateFunc computes a key's next value from its current one. Returning
// changed=false leaves the key untouched.
type UpdateFunc func(old string, ok bool) (next string, changed bool, err error)

// Updater is implemented by stores that can read-modify-write a key atomically.
type Updater interface {
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// Watcher is implemented by stores that can tell when their content changed,
// including changes made by another process.
type Watcher interface {
	// Changes emits after one or more modifications. The channel closes when ctx ends.
	Changes(ctx context.Context) (<-chan struct{}, error)
}

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreSection, logger *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case "file", "":
		return NewFileStore(cfg.Path, logger)
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis store at %s: %w", cfg.RedisAddr, err)
		}
		return NewRedisStore(client, logger), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// MemoryStore keeps everything in process. Used by tests and --store memory.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]string
	subs map[chan struct{}]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]string{}, subs: map[chan struct{}]struct{}{}}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.notifyLocked()
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		delete(m.data, key)
		m.notifyLocked()
	}
	return nil
}

func (m *MemoryStore) Update(_ context.Context, key string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.data[key]
	next, changed, err := fn(old, ok)
	if err != nil || !changed {
		return err
	}
	m.data[key] = next
	m.notifyLocked()
	return nil
}

func (m *MemoryStore) notifyLocked() {
	for ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (m *MemoryStore) Changes(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, ch)
		m.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}
