package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatist/postfeed/internal/feed"
)

func postRows(ids ...uuid.UUID) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "user_id", "caption", "created_at"})
	at := time.Date(2024, 5, 1, 10, 10, 0, 0, time.UTC)
	for i, id := range ids {
		rows.AddRow(id.String(), uuid.Nil.String(), "caption", at.Add(-time.Duration(i)*5*time.Minute))
	}
	return rows
}

func mustPlan(t *testing.T, variant feed.Variant, filters feed.Filters, pos feed.Position, limit int) feed.Plan {
	t.Helper()
	plan, err := feed.NewPlan(variant, filters, pos, limit)
	require.NoError(t, err)
	return plan
}

func TestFeedRowsFetch(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC)
	anchor := uuid.Must(uuid.NewV7())
	viewer := uuid.Must(uuid.NewV7())
	author := uuid.Must(uuid.NewV7())

	tests := []struct {
		name  string
		plan  feed.Plan
		query string
		args  []driver.Value
	}{
		{
			name:  "global from top",
			plan:  mustPlan(t, feed.VariantGlobal, feed.Filters{}, feed.Position{}, 2),
			query: `SELECT p.* FROM posts AS p WHERE p.deleted_at IS NULL ORDER BY p.created_at DESC LIMIT $1`,
			args:  []driver.Value{3},
		},
		{
			name:  "global drops composite id",
			plan:  mustPlan(t, feed.VariantGlobal, feed.Filters{}, feed.AtPost(ts, anchor), 2),
			query: `WHERE p.deleted_at IS NULL AND p.created_at < $1 ORDER BY p.created_at DESC LIMIT $2`,
			args:  []driver.Value{ts, 3},
		},
		{
			name:  "following composite keyset",
			plan:  mustPlan(t, feed.VariantFollowing, feed.Filters{ViewerID: viewer}, feed.AtPost(ts, anchor), 2),
			query: `INNER JOIN followers f ON p.user_id = f.following_id WHERE p.deleted_at IS NULL AND f.user_id = $1 AND ((p.created_at < $2 OR (p.created_at = $3 AND p.id < $4))) ORDER BY p.created_at DESC, p.id DESC LIMIT $5`,
			args:  []driver.Value{viewer, ts, ts, anchor, 3},
		},
		{
			name:  "following by user walks target edges",
			plan:  mustPlan(t, feed.VariantFollowingByUser, feed.Filters{ViewerID: viewer, TargetUserID: author}, feed.Position{}, 2),
			query: `WHERE p.deleted_at IS NULL AND f.user_id = $1 ORDER BY p.created_at DESC, p.id DESC LIMIT $2`,
			args:  []driver.Value{author, 3},
		},
		{
			name:  "trending re-reads anchor counts",
			plan:  mustPlan(t, feed.VariantTrending, feed.Filters{}, feed.AtPost(ts, anchor), 2),
			query: `(SELECT COUNT(*) FROM post_likes WHERE post_id = $1), (SELECT COUNT(*) FROM post_views WHERE post_id = $2), $3, $4) ORDER BY COALESCE(l.like_count, 0) DESC, COALESCE(v.view_count, 0) DESC, p.created_at DESC, p.id DESC LIMIT $5`,
			args:  []driver.Value{anchor, anchor, ts, anchor, 3},
		},
		{
			name:  "trending legacy timestamp token",
			plan:  mustPlan(t, feed.VariantTrending, feed.Filters{}, feed.AtTimestamp(ts), 2),
			query: `p.created_at < $1 ORDER BY COALESCE(l.like_count, 0) DESC`,
			args:  []driver.Value{ts, 3},
		},
		{
			name:  "search escapes like metacharacters",
			plan:  mustPlan(t, feed.VariantSearch, feed.Filters{Query: `50%_off\`, Tag: "sale"}, feed.Position{}, 2),
			query: `WHERE p.deleted_at IS NULL AND p.caption ILIKE $1 AND p.id IN (SELECT post_id FROM post_tags WHERE tag = $2) ORDER BY p.created_at DESC LIMIT $3`,
			args:  []driver.Value{`%50\%\_off\\%`, "sale", 3},
		},
		{
			name:  "search without tag",
			plan:  mustPlan(t, feed.VariantSearch, feed.Filters{Query: "sunset"}, feed.AtTimestamp(ts), 2),
			query: `WHERE p.deleted_at IS NULL AND p.caption ILIKE $1 AND p.created_at < $2 ORDER BY p.created_at DESC LIMIT $3`,
			args:  []driver.Value{"%sunset%", ts, 3},
		},
		{
			name:  "user posts",
			plan:  mustPlan(t, feed.VariantUser, feed.Filters{AuthorID: author}, feed.AtTimestamp(ts), 2),
			query: `WHERE p.deleted_at IS NULL AND p.user_id = $1 AND p.created_at < $2 ORDER BY p.created_at DESC LIMIT $3`,
			args:  []driver.Value{author, ts, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			ids := []uuid.UUID{uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())}

			mock.ExpectQuery(q(tt.query)).WithArgs(tt.args...).WillReturnRows(postRows(ids...))

			posts, err := NewFeedRows(repo).Fetch(context.Background(), tt.plan)
			require.NoError(t, err)
			require.Len(t, posts, 2)
			assert.Equal(t, ids[0], posts[0].ID)
		})
	}
}

func TestFeedRowsFetchError(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(q(`SELECT p.* FROM posts AS p`)).WillReturnError(errors.New("connection reset"))

	posts, err := NewFeedRows(repo).Fetch(context.Background(), mustPlan(t, feed.VariantGlobal, feed.Filters{}, feed.Position{}, 2))
	assert.Nil(t, posts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query global feed")
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\dir`, escapeLike(`c:\dir`))
	assert.Equal(t, "plain", escapeLike("plain"))
}
