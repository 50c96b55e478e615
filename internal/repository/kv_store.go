package repository

import (
	"context"
	"strings"

	"github.com/noah-isme/unigrading-api/internal/models"
)

// KVStore is a flat string key/value backend. Get reports found=false for absent keys.
type KVStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// isLayoutKey reports whether a key belongs to the record layout.
func isLayoutKey(key string) bool {
	for _, c := range models.Collections {
		if key == string(c) {
			return true
		}
	}
	return strings.HasPrefix(key, models.UserKeyPrefix)
}
