package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/creatist/postfeed/internal/models"
)

// DetailRepository reads the details a feed item is decorated with
type DetailRepository struct {
	*Repository
}

// NewDetailRepository creates a new detail repository
func NewDetailRepository(repo *Repository) *DetailRepository {
	return &DetailRepository{Repository: repo}
}

// Media returns a post's attachments in display order
func (r *DetailRepository) Media(ctx context.Context, postID uuid.UUID) ([]models.PostMedia, error) {
	q, cancel := r.session(ctx)
	defer cancel()

	var media []models.PostMedia
	err := q.Where("post_id = ?", postID).
		Order(`"order" ASC, created_at ASC, id ASC`).
		Find(&media).Error
	return media, err
}

// Tags returns a post's tags
func (r *DetailRepository) Tags(ctx context.Context, postID uuid.UUID) ([]string, error) {
	q, cancel := r.session(ctx)
	defer cancel()

	var tags []string
	err := q.Model(&models.PostTag{}).Where("post_id = ?", postID).Order("tag ASC").Pluck("tag", &tags).Error
	return tags, err
}

// Collaborators returns a post's collaborators
func (r *DetailRepository) Collaborators(ctx context.Context, postID uuid.UUID) ([]models.PostCollaborator, error) {
	q, cancel := r.session(ctx)
	defer cancel()

	var collaborators []models.PostCollaborator
	err := q.Where("post_id = ?", postID).Find(&collaborators).Error
	return collaborators, err
}

// LikeCount counts a post's likes
func (r *DetailRepository) LikeCount(ctx context.Context, postID uuid.UUID) (int64, error) {
	return r.count(ctx, &models.PostLike{}, "post_id = ?", postID)
}

// CommentCount counts a post's live comments, replies included
func (r *DetailRepository) CommentCount(ctx context.Context, postID uuid.UUID) (int64, error) {
	return r.count(ctx, &models.PostComment{}, "post_id = ? AND deleted_at IS NULL", postID)
}

// ViewCount counts a post's views
func (r *DetailRepository) ViewCount(ctx context.Context, postID uuid.UUID) (int64, error) {
	return r.count(ctx, &models.PostView{}, "post_id = ?", postID)
}

func (r *DetailRepository) count(ctx context.Context, model interface{}, where string, args ...interface{}) (int64, error) {
	q, cancel := r.session(ctx)
	defer cancel()

	var n int64
	err := q.Model(model).Where(where, args...).Count(&n).Error
	return n, err
}

// AuthorName returns the author's display name, nil when unknown or unset
func (r *DetailRepository) AuthorName(ctx context.Context, userID uuid.UUID) (*string, error) {
	q, cancel := r.session(ctx)
	defer cancel()

	var names []sql.NullString
	if err := q.Model(&models.User{}).Where("id = ?", userID).Limit(1).Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	if len(names) == 0 || !names[0].Valid {
		return nil, nil
	}
	name := names[0].String
	return &name, nil
}

// TopComments returns the first n live root comments, oldest first
func (r *DetailRepository) TopComments(ctx context.Context, postID uuid.UUID, n int) ([]models.PostComment, error) {
	q, cancel := r.session(ctx)
	defer cancel()

	var comments []models.PostComment
	err := q.Where("post_id = ? AND parent_comment_id IS NULL AND deleted_at IS NULL", postID).
		Order("created_at ASC, id ASC").
		Limit(n).
		Find(&comments).Error
	return comments, err
}
