package cache

import (
	"os"
	"sync"
	"time"
)

type fileStamp struct {
	size    int64
	modTime time.Time
}

type memoEntry[T any] struct {
	stamp fileStamp
	value T
}

// FileMemo keeps one computed value per file path, reusing it while the
// file's size and modification time stay the same.
type FileMemo[T any] struct {
	mu      sync.Mutex
	entries map[string]memoEntry[T]
}

func NewFileMemo[T any]() *FileMemo[T] {
	return &FileMemo[T]{entries: make(map[string]memoEntry[T])}
}

// Get returns the memoized value for path, or calls load and stores its result.
// Errors are not memoized.
func (m *FileMemo[T]) Get(path string, load func(string) (T, error)) (T, error) {
	var zero T
	info, err := os.Stat(path)
	if err != nil {
		return zero, err
	}
	stamp := fileStamp{size: info.Size(), modTime: info.ModTime()}

	m.mu.Lock()
	e, ok := m.entries[path]
	m.mu.Unlock()
	if ok && e.stamp.size == stamp.size && e.stamp.modTime.Equal(stamp.modTime) {
		return e.value, nil
	}

	v, err := load(path)
	if err != nil {
		return zero, err
	}

	m.mu.Lock()
	m.entries[path] = memoEntry[T]{stamp: stamp, value: v}
	m.mu.Unlock()
	return v, nil
}

// Len reports how many files are memoized
func (m *FileMemo[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
