package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/unigrading-api/internal/models"
	"github.com/noah-isme/unigrading-api/pkg/config"
	appErrors "github.com/noah-isme/unigrading-api/pkg/errors"
)

// StoreObserver receives timing for each store operation. Per-wallet keys are reported as "user".
type StoreObserver interface {
	ObserveStoreOperation(op, key string, duration time.Duration, err error)
}

// RecordStoreOptions configures a RecordStore.
type RecordStoreOptions struct {
	// WritePolicy is config.WritePolicyLastWriteWins (default) or config.WritePolicySerialized.
	WritePolicy string
	Observer    StoreObserver
	Logger      *zap.Logger
}

// RecordStore reads and writes the users, classrooms and grades collections plus the per-wallet
// user keys on top of a KVStore.
//
// Every collection write replaces the whole array. Under the last-write-wins policy two callers
// that update the same collection concurrently can lose one update. The serialized policy runs
// each read-modify-write under a single process-wide lock; it does not coordinate separate
// processes sharing a backend.
type RecordStore struct {
	kv         KVStore
	serialized bool
	writeMu    sync.Mutex
	observer   StoreObserver
	logger     *zap.Logger
}

// NewRecordStore wraps a KV backend.
func NewRecordStore(kv KVStore, opts RecordStoreOptions) *RecordStore {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordStore{
		kv:         kv,
		serialized: opts.WritePolicy == config.WritePolicySerialized,
		observer:   opts.Observer,
		logger:     logger,
	}
}

// Serialized reports whether read-modify-write cycles are locked.
func (s *RecordStore) Serialized() bool {
	return s.serialized
}

// Users returns the users collection. On corrupt data it returns an empty slice and an
// ErrDataIntegrity error; backend failures are returned as-is.
func (s *RecordStore) Users(ctx context.Context) ([]models.User, error) {
	return readCollection[models.User](ctx, s, models.CollectionUsers)
}

// SetUsers overwrites the users collection.
func (s *RecordStore) SetUsers(ctx context.Context, users []models.User) error {
	return writeCollection(ctx, s, models.CollectionUsers, users)
}

// Classrooms returns the classrooms collection.
func (s *RecordStore) Classrooms(ctx context.Context) ([]models.Classroom, error) {
	return readCollection[models.Classroom](ctx, s, models.CollectionClassrooms)
}

// SetClassrooms overwrites the classrooms collection.
func (s *RecordStore) SetClassrooms(ctx context.Context, classrooms []models.Classroom) error {
	return writeCollection(ctx, s, models.CollectionClassrooms, classrooms)
}

// Grades returns the grades collection.
func (s *RecordStore) Grades(ctx context.Context) ([]models.Grade, error) {
	return readCollection[models.Grade](ctx, s, models.CollectionGrades)
}

// SetGrades overwrites the grades collection.
func (s *RecordStore) SetGrades(ctx context.Context, grades []models.Grade) error {
	return writeCollection(ctx, s, models.CollectionGrades, grades)
}

// UpdateUsers reads, mutates and writes back the users collection. A corrupt collection is
// treated as empty and replaced. Returning an error from fn aborts without writing.
func (s *RecordStore) UpdateUsers(ctx context.Context, fn func([]models.User) ([]models.User, error)) error {
	return updateCollection(ctx, s, models.CollectionUsers, fn)
}

// UpdateClassrooms is UpdateUsers for classrooms.
func (s *RecordStore) UpdateClassrooms(ctx context.Context, fn func([]models.Classroom) ([]models.Classroom, error)) error {
	return updateCollection(ctx, s, models.CollectionClassrooms, fn)
}

// UpdateGrades is UpdateUsers for grades.
func (s *RecordStore) UpdateGrades(ctx context.Context, fn func([]models.Grade) ([]models.Grade, error)) error {
	return updateCollection(ctx, s, models.CollectionGrades, fn)
}

// GetUser loads the per-wallet user key. It returns nil without error when the key is absent,
// and an ErrDataIntegrity error when the value is unparsable or lacks username or role.
func (s *RecordStore) GetUser(ctx context.Context, wallet string) (*models.User, error) {
	key := models.UserKey(wallet)
	raw, ok, err := s.get(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, appErrors.Integrity(key, err)
	}
	if user.Username == "" || user.Role == "" {
		return nil, appErrors.Integrity(key, errors.New("missing username or role"))
	}
	return &user, nil
}

// SetUser writes the per-wallet user key.
func (s *RecordStore) SetUser(ctx context.Context, user models.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user %s: %w", user.WalletAddress, err)
	}
	return s.set(ctx, models.UserKey(user.WalletAddress), string(payload))
}

// DeleteUser removes the per-wallet user key only; the users collection is left untouched.
func (s *RecordStore) DeleteUser(ctx context.Context, wallet string) error {
	return s.del(ctx, models.UserKey(wallet))
}

// Snapshot returns every raw entry in key order.
func (s *RecordStore) Snapshot(ctx context.Context) ([]models.StoreEntry, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]models.StoreEntry, 0, len(keys))
	for _, k := range keys {
		v, ok, err := s.get(ctx, k)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		entries = append(entries, models.StoreEntry{Key: k, Value: v, Size: len(v)})
	}
	return entries, nil
}

// Clear deletes every key and returns the removed keys.
func (s *RecordStore) Clear(ctx context.Context) ([]string, error) {
	unlock := s.lock()
	defer unlock()

	keys, err := s.kv.Keys(ctx)
	if err != nil {
		return nil, err
	}
	removed := make([]string, 0, len(keys))
	for _, k := range keys {
		if err := s.del(ctx, k); err != nil {
			return removed, err
		}
		removed = append(removed, k)
	}
	return removed, nil
}

func (s *RecordStore) lock() func() {
	if !s.serialized {
		return func() {}
	}
	s.writeMu.Lock()
	return s.writeMu.Unlock
}

func readCollection[T any](ctx context.Context, s *RecordStore, c models.Collection) ([]T, error) {
	key := string(c)
	raw, ok, err := s.get(ctx, key)
	if err != nil {
		return []T{}, err
	}
	if !ok || raw == "" {
		return []T{}, nil
	}
	var records []T
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return []T{}, appErrors.Integrity(key, err)
	}
	if records == nil {
		// JSON null is not an array.
		return []T{}, appErrors.Integrity(key, errors.New("value is not an array"))
	}
	return records, nil
}

func writeCollection[T any](ctx context.Context, s *RecordStore, c models.Collection, records []T) error {
	if records == nil {
		records = []T{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", c, err)
	}
	return s.set(ctx, string(c), string(payload))
}

func updateCollection[T any](ctx context.Context, s *RecordStore, c models.Collection, fn func([]T) ([]T, error)) error {
	unlock := s.lock()
	defer unlock()

	records, err := readCollection[T](ctx, s, c)
	if err != nil {
		if !errors.Is(err, appErrors.ErrDataIntegrity) {
			return err
		}
		s.logger.Warn("resetting corrupted collection", zap.String("collection", string(c)), zap.Error(err))
	}
	next, err := fn(records)
	if err != nil {
		return err
	}
	return writeCollection(ctx, s, c, next)
}

func (s *RecordStore) get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	v, ok, err := s.kv.Get(ctx, key)
	s.observe("get", key, start, err)
	return v, ok, err
}

func (s *RecordStore) set(ctx context.Context, key, value string) error {
	start := time.Now()
	err := s.kv.Set(ctx, key, value)
	s.observe("set", key, start, err)
	return err
}

func (s *RecordStore) del(ctx context.Context, key string) error {
	start := time.Now()
	err := s.kv.Delete(ctx, key)
	s.observe("delete", key, start, err)
	return err
}

func (s *RecordStore) observe(op, key string, start time.Time, err error) {
	if s.observer == nil {
		return
	}
	if strings.HasPrefix(key, models.UserKeyPrefix) {
		key = "user"
	}
	s.observer.ObserveStoreOperation(op, key, time.Since(start), err)
}
