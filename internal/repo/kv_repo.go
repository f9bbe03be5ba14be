// Package repo implements the local persistence layer of the client core.
// This file provides the thin CRUD functions over the kv_entries table.
//
// All functions are context-aware and accept a *gorm.DB handle. They carry
// no policy: callers (KVStore, and through it the cache and offline queue)
// decide how failures degrade.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-pos-client/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// GetValue returns the value stored under key, or ErrNotFound.
func GetValue(ctx context.Context, db *gorm.DB, key string) (string, error) {
	var e domain.KVEntry
	err := db.WithContext(ctx).Where("key = ?", key).First(&e).Error
	if err != nil {
		return "", err
	}
	return e.Value, nil
}

// PutValue inserts or replaces the value stored under key.
func PutValue(ctx context.Context, db *gorm.DB, key, value string, now time.Time) error {
	e := domain.KVEntry{Key: key, Value: value, UpdatedAt: now.UTC()}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&e).Error
}

// DeleteKeys removes every listed key in one statement. Missing keys are
// ignored.
func DeleteKeys(ctx context.Context, db *gorm.DB, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return db.WithContext(ctx).Where("key IN ?", keys).Delete(&domain.KVEntry{}).Error
}

// ListKeys returns every stored key in lexical order.
func ListKeys(ctx context.Context, db *gorm.DB) ([]string, error) {
	var out []string
	err := db.WithContext(ctx).
		Model(&domain.KVEntry{}).
		Order("key ASC").
		Pluck("key", &out).Error
	return out, err
}

// PrefixStats returns how many keys start with prefix and the most recent
// write among them. maxUpdatedAt is nil when nothing matches.
func PrefixStats(ctx context.Context, db *gorm.DB, prefix string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.KVEntry{}).Where("key LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%")
	}
	if err = q().Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}
	// ORDER BY instead of MAX(): sqlite would hand MAX() back as TEXT.
	var row struct {
		UpdatedAt time.Time
	}
	if err = q().Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

// isNotFound reports whether err means "no such row".
func isNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }
