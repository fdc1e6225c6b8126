package localstore

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"stickyboard/config"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, KeyDarkMode, "true"))
	v, ok, err := s.Get(ctx, KeyDarkMode)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	require.NoError(t, s.Set(ctx, KeyDarkMode, "false"))
	v, _, err = s.Get(ctx, KeyDarkMode)
	require.NoError(t, err)
	assert.Equal(t, "false", v)

	require.NoError(t, s.Remove(ctx, KeyDarkMode))
	_, ok, err = s.Get(ctx, KeyDarkMode)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Remove(ctx, "never-set"))
}

func waitChange(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case _, ok := <-ch:
		require.True(t, ok, "change channel closed early")
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreChanges(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := s.Changes(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", "v"))
	waitChange(t, ch)

	cancel()
	for range ch {
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")
	s, err := NewFileStore(path, zap.NewNop())
	require.NoError(t, err)
	exerciseStore(t, s)

	// a second instance sees what the first wrote
	require.NoError(t, s.Set(context.Background(), KeyNotes, `[{"id":1}]`))
	other, err := NewFileStore(path, nil)
	require.NoError(t, err)
	v, ok, err := other.Get(context.Background(), KeyNotes)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":1}]`, v)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".store-*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	s, err := NewFileStore(path, nil)
	require.NoError(t, err)

	_, _, err = s.Get(context.Background(), KeyNotes)
	assert.Error(t, err)
}

// increment bumps a decimal counter stored under key.
func increment(old string, ok bool) (string, bool, error) {
	n := 0
	if ok {
		var err error
		if n, err = strconv.Atoi(old); err != nil {
			return "", false, err
		}
	}
	return strconv.Itoa(n + 1), true, nil
}

func TestFileStoreInstancesDoNotLoseWrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")
	a, err := NewFileStore(path, nil)
	require.NoError(t, err)
	b, err := NewFileStore(path, nil)
	require.NoError(t, err)

	const perWriter = 25
	var wg sync.WaitGroup
	for w, s := range []*FileStore{a, b} {
		wg.Add(1)
		go func(w int, s *FileStore) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				assert.NoError(t, s.Set(ctx, "k"+strconv.Itoa(w)+"-"+strconv.Itoa(i), "v"))
				assert.NoError(t, s.Update(ctx, "counter", increment))
			}
		}(w, s)
	}
	wg.Wait()

	for w := 0; w < 2; w++ {
		for i := 0; i < perWriter; i++ {
			_, ok, err := a.Get(ctx, "k"+strconv.Itoa(w)+"-"+strconv.Itoa(i))
			require.NoError(t, err)
			assert.True(t, ok, "writer %d key %d lost", w, i)
		}
	}
	v, _, err := b.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(2*perWriter), v)

	_, err = os.Stat(path + ".lock")
	assert.NoError(t, err)
}

func TestUpdateLeavesKeyAloneWhenUnchanged(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "store.json"), nil)
	require.NoError(t, err)

	for name, s := range map[string]Updater{"memory": NewMemoryStore(), "file": fs} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Update(ctx, KeyDarkMode, increment))
			require.NoError(t, s.Update(ctx, KeyDarkMode, increment))
			v, ok, err := s.(Store).Get(ctx, KeyDarkMode)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "2", v)

			err = s.Update(ctx, KeyDarkMode, func(old string, ok bool) (string, bool, error) {
				return "ignored", false, nil
			})
			require.NoError(t, err)
			v, _, _ = s.(Store).Get(ctx, KeyDarkMode)
			assert.Equal(t, "2", v)

			err = s.Update(ctx, "absent", func(string, bool) (string, bool, error) {
				return "", false, nil
			})
			require.NoError(t, err)
			_, ok, _ = s.(Store).Get(ctx, "absent")
			assert.False(t, ok)
		})
	}
}

func TestFileStoreChangesSeesOtherWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := NewFileStore(path, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := s.Changes(ctx)
	require.NoError(t, err)

	writer, err := NewFileStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, writer.Set(ctx, KeyReminders, "{}"))
	waitChange(t, ch)

	// unrelated files in the directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.txt"), []byte("x"), 0o600))
	select {
	case <-ch:
		t.Fatal("unexpected change for unrelated file")
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	for range ch {
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreSection{Driver: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, config.StoreSection{Driver: "file", Path: filepath.Join(t.TempDir(), "s.json")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(ctx, config.StoreSection{Driver: "etcd"}, nil)
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("STICKYBOARD_TEST_REDIS")
	if addr == "" {
		t.Skip("STICKYBOARD_TEST_REDIS not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis unreachable: %v", err)
	}
	s := NewRedisStore(client, zap.NewNop())
	defer s.Close()

	exerciseStore(t, s)

	require.NoError(t, s.Remove(ctx, "counter"))
	require.NoError(t, s.Update(ctx, "counter", increment))
	require.NoError(t, s.Update(ctx, "counter", increment))
	v, _, err := s.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
	require.NoError(t, s.Remove(ctx, "counter"))

	watchCtx, stop := context.WithCancel(ctx)
	ch, err := s.Changes(watchCtx)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, KeyNotes, "[]"))
	waitChange(t, ch)
	stop()
	for range ch {
	}
	require.NoError(t, s.Remove(ctx, KeyNotes))
}
