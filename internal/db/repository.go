package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/creatist/postfeed/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// session returns a gorm handle bound to a ctx carrying the statement timeout.
func (r *Repository) session(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := r.db.WithTimeout(ctx)
	return r.db.WithContext(ctx), cancel
}

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// GetByID retrieves a live post by ID
func (r *PostRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	q, cancel := r.session(ctx)
	defer cancel()

	var post models.Post
	if err := q.Where("id = ? AND deleted_at IS NULL", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// CreateWithChildren inserts a post and its media, tags and collaborators in
// one serializable transaction.
func (r *PostRepository) CreateWithChildren(ctx context.Context, post *models.Post, media []models.PostMedia, tags []models.PostTag, collaborators []models.PostCollaborator) error {
	q, cancel := r.session(ctx)
	defer cancel()

	return q.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return fmt.Errorf("insert post: %w", err)
		}
		if len(media) > 0 {
			if err := tx.Create(&media).Error; err != nil {
				return fmt.Errorf("insert media: %w", err)
			}
		}
		if len(tags) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tags).Error; err != nil {
				return fmt.Errorf("insert tags: %w", err)
			}
		}
		if len(collaborators) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&collaborators).Error; err != nil {
				return fmt.Errorf("insert collaborators: %w", err)
			}
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

// SoftDelete marks a post deleted if userID authored it. It reports whether a
// row changed; an unknown post, a foreign author and a repeat delete all
// report false.
func (r *PostRepository) SoftDelete(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	q, cancel := r.session(ctx)
	defer cancel()

	res := q.Model(&models.Post{}).
		Where("id = ? AND user_id = ? AND deleted_at IS NULL", postID, userID).
		UpdateColumn("deleted_at", gorm.Expr("now()"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CommentQuery selects one page of a thread
type CommentQuery struct {
	PostID   uuid.UUID
	ParentID *uuid.UUID // nil lists root comments
	After    *time.Time
	AfterID  *uuid.UUID // breaks ties on After; nil keys on the timestamp alone
	Limit    int
}

// CommentRepository provides comment-related database operations
type CommentRepository struct {
	*Repository
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(repo *Repository) *CommentRepository {
	return &CommentRepository{Repository: repo}
}

// GetByID retrieves a live comment by ID
func (r *CommentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PostComment, error) {
	q, cancel := r.session(ctx)
	defer cancel()

	var comment models.PostComment
	if err := q.Where("id = ? AND deleted_at IS NULL", id).First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// Create creates a new comment
func (r *CommentRepository) Create(ctx context.Context, comment *models.PostComment) error {
	q, cancel := r.session(ctx)
	defer cancel()
	return q.Create(comment).Error
}

// List returns live comments of a thread oldest first
func (r *CommentRepository) List(ctx context.Context, cq CommentQuery) ([]models.PostComment, error) {
	q, cancel := r.session(ctx)
	defer cancel()

	q = q.Where("post_id = ? AND deleted_at IS NULL", cq.PostID)
	if cq.ParentID != nil {
		q = q.Where("parent_comment_id = ?", *cq.ParentID)
	} else {
		q = q.Where("parent_comment_id IS NULL")
	}
	switch {
	case cq.After != nil && cq.AfterID != nil:
		q = q.Where("(created_at > ? OR (created_at = ? AND id > ?))", *cq.After, *cq.After, *cq.AfterID)
	case cq.After != nil:
		q = q.Where("created_at > ?", *cq.After)
	}

	comments := []models.PostComment{}
	if err := q.Order("created_at ASC, id ASC").Limit(cq.Limit).Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// EngagementRepository records likes and views
type EngagementRepository struct {
	*Repository
}

// NewEngagementRepository creates a new engagement repository
func NewEngagementRepository(repo *Repository) *EngagementRepository {
	return &EngagementRepository{Repository: repo}
}

// Like records a like. Liking twice is a no-op.
func (r *EngagementRepository) Like(ctx context.Context, postID, userID uuid.UUID) error {
	q, cancel := r.session(ctx)
	defer cancel()

	like := models.PostLike{PostID: postID, UserID: userID}
	return q.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error
}

// Unlike removes a like if present
func (r *EngagementRepository) Unlike(ctx context.Context, postID, userID uuid.UUID) error {
	q, cancel := r.session(ctx)
	defer cancel()

	return q.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{}).Error
}

// RecordView appends a view
func (r *EngagementRepository) RecordView(ctx context.Context, view *models.PostView) error {
	q, cancel := r.session(ctx)
	defer cancel()
	return q.Create(view).Error
}
