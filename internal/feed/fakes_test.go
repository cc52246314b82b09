package feed

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/creatist/postfeed/internal/models"
)

var errStoreDown = errors.New("connection refused")

// memoryRows mimics the SQL row sources closely enough for paging tests.
type memoryRows struct {
	posts   []models.Post
	follows map[uuid.UUID][]uuid.UUID
	likes   map[uuid.UUID]int64
	views   map[uuid.UUID]int64
	err     error

	mu    sync.Mutex
	plans []Plan
}

func (m *memoryRows) Fetch(_ context.Context, plan Plan) ([]models.Post, error) {
	m.mu.Lock()
	m.plans = append(m.plans, plan)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	trending := plan.Variant == VariantTrending

	var out []models.Post
	for _, p := range m.posts {
		if !p.Live() || !m.matches(plan, p) {
			continue
		}
		if trending && !m.trendingBefore(plan.Position, p) {
			continue
		}
		if !trending && !before(plan.Position, p) {
			continue
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		if trending {
			return m.key(out[j]).less(m.key(out[i]))
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) > 0
	})

	if len(out) > plan.FetchLimit() {
		out = out[:plan.FetchLimit()]
	}
	return out, nil
}

func (m *memoryRows) lastPlan() Plan {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plans[len(m.plans)-1]
}

func (m *memoryRows) matches(plan Plan, p models.Post) bool {
	switch plan.Variant {
	case VariantFollowing, VariantFollowingByUser:
		for _, id := range m.follows[plan.FollowerID()] {
			if id == p.UserID {
				return true
			}
		}
		return false
	case VariantUser:
		return p.UserID == plan.Filters.AuthorID
	case VariantSearch:
		return strings.Contains(strings.ToLower(p.Caption), strings.ToLower(plan.Filters.Query))
	}
	return true
}

func before(pos Position, p models.Post) bool {
	switch pos.Kind {
	case TimestampOnly:
		return p.CreatedAt.Before(pos.Timestamp)
	case Composite:
		if p.CreatedAt.Before(pos.Timestamp) {
			return true
		}
		return p.CreatedAt.Equal(pos.Timestamp) && bytes.Compare(p.ID[:], pos.PostID[:]) < 0
	}
	return true
}

// trendingKey is the trending sort tuple, compared like a SQL row value.
type trendingKey struct {
	likes, views int64
	at           time.Time
	id           uuid.UUID
}

func (k trendingKey) less(o trendingKey) bool {
	switch {
	case k.likes != o.likes:
		return k.likes < o.likes
	case k.views != o.views:
		return k.views < o.views
	case !k.at.Equal(o.at):
		return k.at.Before(o.at)
	}
	return bytes.Compare(k.id[:], o.id[:]) < 0
}

func (m *memoryRows) key(p models.Post) trendingKey {
	return trendingKey{likes: m.likes[p.ID], views: m.views[p.ID], at: p.CreatedAt, id: p.ID}
}

// trendingBefore re-reads the anchor's counts, as the SQL subqueries do.
func (m *memoryRows) trendingBefore(pos Position, p models.Post) bool {
	switch pos.Kind {
	case TimestampOnly:
		return p.CreatedAt.Before(pos.Timestamp)
	case Composite:
		anchor := trendingKey{likes: m.likes[pos.PostID], views: m.views[pos.PostID], at: pos.Timestamp, id: pos.PostID}
		return m.key(p).less(anchor)
	}
	return true
}

// memoryDetails serves fixed details and fails for selected posts.
type memoryDetails struct {
	failing   map[uuid.UUID]bool
	panicking map[uuid.UUID]bool
	names     map[uuid.UUID]string
	likes     map[uuid.UUID]int64
	views     map[uuid.UUID]int64
}

func (m *memoryDetails) Media(_ context.Context, postID uuid.UUID) ([]models.PostMedia, error) {
	if m.panicking[postID] {
		panic("media row scan: nil pointer")
	}
	if m.failing[postID] {
		return nil, errStoreDown
	}
	return []models.PostMedia{{PostID: postID, URL: "https://cdn.example/" + postID.String(), Type: models.MediaTypeImage}}, nil
}

func (m *memoryDetails) Tags(context.Context, uuid.UUID) ([]string, error) {
	return nil, nil
}

func (m *memoryDetails) Collaborators(context.Context, uuid.UUID) ([]models.PostCollaborator, error) {
	return nil, nil
}

func (m *memoryDetails) LikeCount(_ context.Context, postID uuid.UUID) (int64, error) {
	return m.likes[postID], nil
}

func (m *memoryDetails) CommentCount(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}

func (m *memoryDetails) ViewCount(_ context.Context, postID uuid.UUID) (int64, error) {
	return m.views[postID], nil
}

func (m *memoryDetails) AuthorName(_ context.Context, userID uuid.UUID) (*string, error) {
	name, ok := m.names[userID]
	if !ok {
		return nil, nil
	}
	return &name, nil
}

func (m *memoryDetails) TopComments(context.Context, uuid.UUID, int) ([]models.PostComment, error) {
	return nil, nil
}

func newPost(author uuid.UUID, caption string, at time.Time) models.Post {
	return models.Post{
		ID:         uuid.Must(uuid.NewV7()),
		UserID:     author,
		Caption:    caption,
		Status:     models.PostStatusPublished,
		Visibility: models.VisibilityPublic,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
}
