package feed

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/creatist/postfeed/internal/models"
	"github.com/creatist/postfeed/pkg/telemetry"
)

// TopCommentCount is how many root comments a hydrated post carries
const TopCommentCount = 3

// DetailStore reads the per-post details a feed item is decorated with.
type DetailStore interface {
	Media(ctx context.Context, postID uuid.UUID) ([]models.PostMedia, error)
	Tags(ctx context.Context, postID uuid.UUID) ([]string, error)
	Collaborators(ctx context.Context, postID uuid.UUID) ([]models.PostCollaborator, error)
	LikeCount(ctx context.Context, postID uuid.UUID) (int64, error)
	CommentCount(ctx context.Context, postID uuid.UUID) (int64, error)
	ViewCount(ctx context.Context, postID uuid.UUID) (int64, error)
	AuthorName(ctx context.Context, userID uuid.UUID) (*string, error)
	TopComments(ctx context.Context, postID uuid.UUID, n int) ([]models.PostComment, error)
}

// HydrationError reports which detail read failed for a post
type HydrationError struct {
	PostID uuid.UUID
	Step   string
	Err    error
}

func (e *HydrationError) Error() string {
	return fmt.Sprintf("hydrate post %s: %s: %v", e.PostID, e.Step, e.Err)
}

func (e *HydrationError) Unwrap() error {
	return e.Err
}

// HydrationResult pairs a row with its details or the failure.
type HydrationResult struct {
	Post    models.Post
	Details *models.PostWithDetails
	Err     error
}

// Hydrator decorates post rows with their details
type Hydrator struct {
	store       DetailStore
	concurrency int
}

// NewHydrator creates a hydrator running at most concurrency posts at once.
func NewHydrator(store DetailStore, concurrency int) *Hydrator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Hydrator{store: store, concurrency: concurrency}
}

// Hydrate reads every detail of one post. Any failed read fails the post,
// including a read that panics.
func (h *Hydrator) Hydrate(ctx context.Context, post models.Post) (res HydrationResult) {
	details := &models.PostWithDetails{Post: post}
	fail := func(step string, err error) HydrationResult {
		return HydrationResult{Post: post, Err: &HydrationError{PostID: post.ID, Step: step, Err: err}}
	}
	defer func() {
		if r := recover(); r != nil {
			res = fail("recover", fmt.Errorf("panic: %v", r))
		}
	}()

	var err error
	if details.Media, err = h.store.Media(ctx, post.ID); err != nil {
		return fail("media", err)
	}
	if details.Tags, err = h.store.Tags(ctx, post.ID); err != nil {
		return fail("tags", err)
	}
	if details.Collaborators, err = h.store.Collaborators(ctx, post.ID); err != nil {
		return fail("collaborators", err)
	}
	if details.LikeCount, err = h.store.LikeCount(ctx, post.ID); err != nil {
		return fail("like count", err)
	}
	if details.CommentCount, err = h.store.CommentCount(ctx, post.ID); err != nil {
		return fail("comment count", err)
	}
	if details.ViewCount, err = h.store.ViewCount(ctx, post.ID); err != nil {
		return fail("view count", err)
	}
	if details.AuthorName, err = h.store.AuthorName(ctx, post.UserID); err != nil {
		return fail("author", err)
	}
	if details.TopComments, err = h.store.TopComments(ctx, post.ID, TopCommentCount); err != nil {
		return fail("top comments", err)
	}

	normalize(details)
	return HydrationResult{Post: post, Details: details}
}

// HydrateAll hydrates posts concurrently. Results keep the order of posts;
// one post failing never cancels the others.
func (h *Hydrator) HydrateAll(ctx context.Context, posts []models.Post) []HydrationResult {
	ctx, span := telemetry.StartSpan(ctx, "feed.hydrate",
		trace.WithAttributes(attribute.Int("feed.rows", len(posts))))
	defer span.End()

	results := make([]HydrationResult, len(posts))

	var g errgroup.Group
	g.SetLimit(h.concurrency)
	for i := range posts {
		i := i
		g.Go(func() error {
			results[i] = h.Hydrate(ctx, posts[i])
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d of %d posts failed hydration", failed, len(posts)))
	}
	return results
}

// normalize replaces nil slices so items serialize as [] rather than null.
func normalize(d *models.PostWithDetails) {
	if d.Media == nil {
		d.Media = []models.PostMedia{}
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	if d.Collaborators == nil {
		d.Collaborators = []models.PostCollaborator{}
	}
	if d.TopComments == nil {
		d.TopComments = []models.PostComment{}
	}
}
