// Package seed resets the track store and loads a known dataset into it.
package seed

import (
	"context"
	"errors"
	"fmt"

	"tracksvc/cache"
	"tracksvc/logger"
	"tracksvc/repository"
)

// ErrSeedInProgress is returned when another seed holds the lock for too long.
var ErrSeedInProgress = errors.New("another seed is in progress")

// Locker serializes seeds. cache.RedisLocker and cache.LocalLocker implement it.
type Locker interface {
	Acquire(ctx context.Context) (cache.ReleaseFunc, error)
}

// Loader drops and recreates the tracks table, then bulk-inserts a dataset.
type Loader struct {
	repo    repository.TrackRepository
	locker  Locker
	dataset Dataset
}

// NewLoader creates a Loader.
func NewLoader(repo repository.TrackRepository, locker Locker, dataset Dataset) *Loader {
	return &Loader{repo: repo, locker: locker, dataset: dataset}
}

// Seed replaces the store contents with the dataset and returns how many
// tracks were inserted. The dataset is read before anything is dropped, so a
// broken dataset leaves the store untouched.
func (l *Loader) Seed(ctx context.Context) (int, error) {
	release, err := l.locker.Acquire(ctx)
	if err != nil {
		if errors.Is(err, cache.ErrLockHeld) {
			return 0, ErrSeedInProgress
		}
		return 0, fmt.Errorf("failed to acquire seed lock: %w", err)
	}
	defer func() {
		// the request context may already be done; release regardless
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to release seed lock", logger.ErrorField(err))
		}
	}()

	tracks, err := l.dataset()
	if err != nil {
		return 0, err
	}

	if err := l.repo.ResetSchema(ctx); err != nil {
		return 0, err
	}
	if err := l.repo.BulkInsert(ctx, tracks); err != nil {
		return 0, err
	}

	logger.Info("database seeded", logger.Int("tracks", len(tracks)))
	return len(tracks), nil
}
