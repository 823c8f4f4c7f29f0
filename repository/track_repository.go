package repository

import (
	"context"
	"errors"
	"fmt"

	"tracksvc/model"
	"tracksvc/query"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const insertBatchSize = 100

// TrackRepository defines the store operations on tracks.
type TrackRepository interface {
	// ResetSchema drops the tracks table and recreates it empty.
	ResetSchema(ctx context.Context) error
	BulkInsert(ctx context.Context, tracks []*model.Track) error
	// FindAll returns every track matching c, never nil.
	FindAll(ctx context.Context, c query.Criteria) ([]*model.Track, error)
	// FindOne returns the first match of c, or nil when nothing matches.
	FindOne(ctx context.Context, c query.Criteria) (*model.Track, error)
	Count(ctx context.Context) (int64, error)
}

// gormTrackRepository implements TrackRepository on top of GORM.
type gormTrackRepository struct {
	db *gorm.DB
}

// NewGormTrackRepository creates a track repository backed by db.
func NewGormTrackRepository(db *gorm.DB) TrackRepository {
	return &gormTrackRepository{db: db}
}

// ResetSchema drops and recreates the tracks table.
func (r *gormTrackRepository) ResetSchema(ctx context.Context) error {
	m := r.db.WithContext(ctx).Migrator()
	if err := m.DropTable(&model.Track{}); err != nil {
		return fmt.Errorf("failed to drop tracks table: %w", err)
	}
	if err := m.AutoMigrate(&model.Track{}); err != nil {
		return fmt.Errorf("failed to create tracks table: %w", err)
	}
	return nil
}

// BulkInsert inserts tracks and fills in their IDs.
func (r *gormTrackRepository) BulkInsert(ctx context.Context, tracks []*model.Track) error {
	if len(tracks) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(tracks, insertBatchSize).Error; err != nil {
		return fmt.Errorf("failed to insert %d tracks: %w", len(tracks), err)
	}
	return nil
}

// FindAll retrieves tracks matching c.
func (r *gormTrackRepository) FindAll(ctx context.Context, c query.Criteria) ([]*model.Track, error) {
	tx, err := r.scope(ctx, c)
	if err != nil {
		return nil, err
	}

	tracks := make([]*model.Track, 0)
	if err := tx.Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	return tracks, nil
}

// FindOne retrieves a single track matching c.
func (r *gormTrackRepository) FindOne(ctx context.Context, c query.Criteria) (*model.Track, error) {
	tx, err := r.scope(ctx, c)
	if err != nil {
		return nil, err
	}

	var track model.Track
	if err := tx.Take(&track).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query track: %w", err)
	}
	return &track, nil
}

// Count returns the number of stored tracks.
func (r *gormTrackRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Track{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return n, nil
}

// scope applies c to a tracks query. Column names go through clause.Column so
// they are quoted; directions are checked before they reach SQL.
func (r *gormTrackRepository) scope(ctx context.Context, c query.Criteria) (*gorm.DB, error) {
	tx := r.db.WithContext(ctx).Model(&model.Track{})
	for _, f := range c.Filters {
		tx = tx.Where(clause.Eq{Column: clause.Column{Name: f.Field}, Value: f.Value})
	}
	for _, o := range c.Orders {
		dir, err := query.NormalizeDirection(o.Direction)
		if err != nil {
			return nil, err
		}
		tx = tx.Order(clause.OrderByColumn{
			Column: clause.Column{Name: o.Field},
			Desc:   dir == query.Desc,
		})
	}
	return tx, nil
}
