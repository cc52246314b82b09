// Package boards reads accepted role assignments of visionboards, which seed
// the collaborators of posts created from a board.
package boards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/creatist/postfeed/internal/cache"
	"github.com/creatist/postfeed/internal/db"
	"github.com/creatist/postfeed/internal/models"
)

// Assignment is a user's accepted work on a board
type Assignment struct {
	UserID   uuid.UUID `json:"user_id"`
	WorkType string    `json:"work_type"`
}

// Role maps the assignment's work type to a collaborator role
func (a Assignment) Role() models.CollaboratorRole {
	return models.RoleFromWorkType(a.WorkType)
}

// Directory lists accepted assignments of a board
type Directory interface {
	AcceptedAssignments(ctx context.Context, boardID uuid.UUID) ([]Assignment, error)
}

// SQLDirectory reads assignments from the board tables
type SQLDirectory struct {
	db *db.DB
}

// NewSQLDirectory creates a directory over the board tables
func NewSQLDirectory(d *db.DB) *SQLDirectory {
	return &SQLDirectory{db: d}
}

// AcceptedAssignments returns accepted assignments across all genres of the board
func (d *SQLDirectory) AcceptedAssignments(ctx context.Context, boardID uuid.UUID) ([]Assignment, error) {
	ctx, cancel := d.db.WithTimeout(ctx)
	defer cancel()

	assignments := []Assignment{}
	err := d.db.WithContext(ctx).
		Table("genre_assignments AS ga").
		Select("ga.user_id, ga.work_type").
		Joins("JOIN genres g ON ga.genre_id = g.id").
		Where("g.visionboard_id = ? AND ga.status = ?", boardID, models.AssignmentStatusAccepted).
		Order("ga.user_id").
		Scan(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("board %s assignments: %w", boardID, err)
	}
	return assignments, nil
}

// JSONCache is the subset of the Redis cache the directory uses
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CachedDirectory serves assignments from cache, falling back to next.
type CachedDirectory struct {
	next   Directory
	cache  JSONCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedDirectory wraps next with a cache-aside layer
func NewCachedDirectory(next Directory, c JSONCache, ttl time.Duration, logger *zap.Logger) *CachedDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedDirectory{next: next, cache: c, ttl: ttl, logger: logger}
}

func boardKey(boardID uuid.UUID) string {
	return "boards:" + cache.HashKey("accepted", boardID.String())
}

// AcceptedAssignments returns cached assignments, reading through on a miss.
// Cache failures are logged and never fail the lookup.
func (d *CachedDirectory) AcceptedAssignments(ctx context.Context, boardID uuid.UUID) ([]Assignment, error) {
	key := boardKey(boardID)

	var cached []Assignment
	err := d.cache.GetJSON(ctx, key, &cached)
	switch {
	case err == nil:
		return cached, nil
	case errors.Is(err, cache.ErrCacheMiss), errors.Is(err, cache.ErrCacheDisabled):
	default:
		d.logger.Warn("Board cache read failed", zap.String("board_id", boardID.String()), zap.Error(err))
	}

	assignments, err := d.next.AcceptedAssignments(ctx, boardID)
	if err != nil {
		return nil, err
	}

	if err := d.cache.SetJSON(ctx, key, assignments, d.ttl); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		d.logger.Warn("Board cache write failed", zap.String("board_id", boardID.String()), zap.Error(err))
	}
	return assignments, nil
}
