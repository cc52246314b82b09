package db

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/creatist/postfeed/internal/feed"
	"github.com/creatist/postfeed/internal/models"
)

const (
	likeCounts = "LEFT JOIN (SELECT post_id, COUNT(*) AS like_count FROM post_likes GROUP BY post_id) l ON l.post_id = p.id"
	viewCounts = "LEFT JOIN (SELECT post_id, COUNT(*) AS view_count FROM post_views GROUP BY post_id) v ON v.post_id = p.id"

	orderByRecency  = "p.created_at DESC"
	orderByKeyset   = "p.created_at DESC, p.id DESC"
	orderByTrending = "COALESCE(l.like_count, 0) DESC, COALESCE(v.view_count, 0) DESC, p.created_at DESC, p.id DESC"

	// The anchor's counts are read when the next page is requested, so the
	// keyset is the whole sort tuple even though the cursor only carries
	// (created_at, id).
	trendingKeyset = "(COALESCE(l.like_count, 0), COALESCE(v.view_count, 0), p.created_at, p.id) < (" +
		"(SELECT COUNT(*) FROM post_likes WHERE post_id = ?), " +
		"(SELECT COUNT(*) FROM post_views WHERE post_id = ?), ?, ?)"
)

// FeedRows renders feed plans as SQL
type FeedRows struct {
	*Repository
}

// NewFeedRows creates the feed row source
func NewFeedRows(repo *Repository) *FeedRows {
	return &FeedRows{Repository: repo}
}

// Fetch runs plan and returns up to plan.FetchLimit() live posts.
func (f *FeedRows) Fetch(ctx context.Context, plan feed.Plan) ([]models.Post, error) {
	q, cancel := f.session(ctx)
	defer cancel()

	posts := []models.Post{}
	if err := f.Query(q, plan).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("query %s feed: %w", plan.Variant, err)
	}
	return posts, nil
}

// Query applies plan to q without executing it.
func (f *FeedRows) Query(q *gorm.DB, plan feed.Plan) *gorm.DB {
	q = q.Table("posts AS p").Select("p.*").Where("p.deleted_at IS NULL")
	pos := plan.Position

	switch plan.Variant {
	case feed.VariantFollowing, feed.VariantFollowingByUser:
		q = q.Joins("INNER JOIN followers f ON p.user_id = f.following_id").
			Where("f.user_id = ?", plan.FollowerID())
		q = compositeKeyset(q, pos).Order(orderByKeyset)

	case feed.VariantTrending:
		q = q.Joins(likeCounts).Joins(viewCounts)
		switch pos.Kind {
		case feed.Composite:
			q = q.Where(trendingKeyset, pos.PostID, pos.PostID, pos.Timestamp, pos.PostID)
		case feed.TimestampOnly:
			q = q.Where("p.created_at < ?", pos.Timestamp)
		}
		q = q.Order(orderByTrending)

	case feed.VariantSearch:
		q = q.Where("p.caption ILIKE ?", "%"+escapeLike(plan.Filters.Query)+"%")
		if tag := strings.TrimSpace(plan.Filters.Tag); tag != "" {
			q = q.Where("p.id IN (SELECT post_id FROM post_tags WHERE tag = ?)", tag)
		}
		q = timestampKeyset(q, pos).Order(orderByRecency)

	case feed.VariantUser:
		q = q.Where("p.user_id = ?", plan.Filters.AuthorID)
		q = timestampKeyset(q, pos).Order(orderByRecency)

	default:
		q = timestampKeyset(q, pos).Order(orderByRecency)
	}

	return q.Limit(plan.FetchLimit())
}

func timestampKeyset(q *gorm.DB, pos feed.Position) *gorm.DB {
	if pos.IsZero() {
		return q
	}
	return q.Where("p.created_at < ?", pos.Timestamp)
}

func compositeKeyset(q *gorm.DB, pos feed.Position) *gorm.DB {
	switch pos.Kind {
	case feed.Composite:
		return q.Where("(p.created_at < ? OR (p.created_at = ? AND p.id < ?))", pos.Timestamp, pos.Timestamp, pos.PostID)
	case feed.TimestampOnly:
		return q.Where("p.created_at < ?", pos.Timestamp)
	}
	return q
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
