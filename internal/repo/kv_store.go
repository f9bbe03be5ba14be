package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// KVStore is the durable key-value store used by the cache layer and the
// offline queue. It adapts the kv_entries free functions to a small
// method set; every operation may fail and callers treat failures softly.
type KVStore struct {
	DB  *gorm.DB
	Now func() time.Time
}

// NewKVStore returns a KVStore over db using the wall clock.
func NewKVStore(db *gorm.DB) *KVStore {
	return &KVStore{DB: db, Now: time.Now}
}

// Get returns the value under key. ok is false when the key is absent.
func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := GetValue(ctx, s.DB, key)
	if isNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	return PutValue(ctx, s.DB, key, value, s.Now())
}

// Remove deletes key. Removing an absent key is not an error.
func (s *KVStore) Remove(ctx context.Context, key string) error {
	return DeleteKeys(ctx, s.DB, key)
}

// MultiRemove deletes all keys in one statement.
func (s *KVStore) MultiRemove(ctx context.Context, keys []string) error {
	return DeleteKeys(ctx, s.DB, keys...)
}

// AllKeys lists every stored key.
func (s *KVStore) AllKeys(ctx context.Context) ([]string, error) {
	return ListKeys(ctx, s.DB)
}

// Stats reports the number of keys under prefix and their latest write.
func (s *KVStore) Stats(ctx context.Context, prefix string) (int64, *time.Time, error) {
	return PrefixStats(ctx, s.DB, prefix)
}
