package cache

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

var errBoom = errors.New("boom")

// memStore is an in-memory Store with per-operation failure switches.
type memStore struct {
	mu   sync.Mutex
	data map[string]string

	failGet      bool
	failSet      func(key string) bool
	failAllKeys  bool
	failRemove   bool
	removedCalls int
}

func newMemStore() *memStore { return &memStore{data: map[string]string{}} }

func (m *memStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return "", false, errBoom
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil && m.failSet(key) {
		return errBoom
	}
	m.data[key] = value
	return nil
}

func (m *memStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRemove {
		return errBoom
	}
	delete(m.data, key)
	return nil
}

func (m *memStore) MultiRemove(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removedCalls++
	if m.failRemove {
		return errBoom
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memStore) AllKeys(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAllKeys {
		return nil, errBoom
	}
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

func (m *memStore) cacheKeys() []string {
	keys, _ := m.AllKeys(context.Background())
	var out []string
	for _, k := range keys {
		if strings.HasPrefix(k, Namespace) && !strings.HasSuffix(k, writtenAtSuffix) {
			out = append(out, strings.TrimPrefix(k, Namespace))
		}
	}
	return out
}
