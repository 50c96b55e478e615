package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/unigrading-api/internal/models"
	appErrors "github.com/noah-isme/unigrading-api/pkg/errors"
)

type collectionReader interface {
	Users(ctx context.Context) ([]models.User, error)
	Classrooms(ctx context.Context) ([]models.Classroom, error)
	Grades(ctx context.Context) ([]models.Grade, error)
}

// snapshot is one consistent-enough read of the three collections.
type snapshot struct {
	users      []models.User
	classrooms []models.Classroom
	grades     []models.Grade
}

// loadSnapshot reads all collections. Corrupt collections are logged and read as empty; only
// backend failures are returned.
func loadSnapshot(ctx context.Context, store collectionReader, metrics *MetricsService, logger *zap.Logger) (snapshot, error) {
	var (
		snap snapshot
		err  error
	)
	snap.users, err = store.Users(ctx)
	if snap.users, err = recoverCollection(snap.users, err, models.CollectionUsers, metrics, logger); err != nil {
		return snapshot{}, err
	}
	snap.classrooms, err = store.Classrooms(ctx)
	if snap.classrooms, err = recoverCollection(snap.classrooms, err, models.CollectionClassrooms, metrics, logger); err != nil {
		return snapshot{}, err
	}
	snap.grades, err = store.Grades(ctx)
	if snap.grades, err = recoverCollection(snap.grades, err, models.CollectionGrades, metrics, logger); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func recoverCollection[T any](records []T, err error, c models.Collection, metrics *MetricsService, logger *zap.Logger) ([]T, error) {
	if err == nil {
		return records, nil
	}
	if errors.Is(err, appErrors.ErrDataIntegrity) {
		logger.Warn("corrupted collection read as empty", zap.String("collection", string(c)), zap.Error(err))
		metrics.RecordIntegrityError(string(c))
		return []T{}, nil
	}
	return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read "+string(c))
}

// writeError maps a store write failure onto the response taxonomy, passing typed errors through.
func writeError(err error, message string) error {
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// waitOrCancel runs the simulated latency and converts cancellation into ErrCancelled.
func waitOrCancel(ctx context.Context, latency Latency, op Operation) error {
	if err := latency.Wait(ctx, op); err != nil {
		return appErrors.Wrap(err, appErrors.ErrCancelled.Code, appErrors.ErrCancelled.Status, appErrors.ErrCancelled.Message)
	}
	return nil
}
