package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatist/postfeed/internal/models"
)

func TestHydrate(t *testing.T) {
	author := uuid.Must(uuid.NewV7())
	post := newPost(author, "first light", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	store := &memoryDetails{
		names: map[uuid.UUID]string{author: "Asha"},
		likes: map[uuid.UUID]int64{post.ID: 4},
	}

	res := NewHydrator(store, 2).Hydrate(context.Background(), post)
	require.NoError(t, res.Err)
	require.NotNil(t, res.Details)

	assert.Equal(t, post.ID, res.Details.ID)
	assert.Len(t, res.Details.Media, 1)
	assert.Equal(t, int64(4), res.Details.LikeCount)
	require.NotNil(t, res.Details.AuthorName)
	assert.Equal(t, "Asha", *res.Details.AuthorName)
	assert.NotNil(t, res.Details.Tags, "empty tags serialize as []")
	assert.NotNil(t, res.Details.TopComments)
}

func TestHydrateMissingAuthorName(t *testing.T) {
	post := newPost(uuid.Must(uuid.NewV7()), "anonymous", time.Now())
	res := NewHydrator(&memoryDetails{}, 1).Hydrate(context.Background(), post)
	require.NoError(t, res.Err)
	assert.Nil(t, res.Details.AuthorName)
}

func TestHydrateFailure(t *testing.T) {
	post := newPost(uuid.Must(uuid.NewV7()), "broken", time.Now())
	store := &memoryDetails{failing: map[uuid.UUID]bool{post.ID: true}}

	res := NewHydrator(store, 1).Hydrate(context.Background(), post)
	require.Error(t, res.Err)
	assert.Nil(t, res.Details)

	var herr *HydrationError
	require.True(t, errors.As(res.Err, &herr))
	assert.Equal(t, post.ID, herr.PostID)
	assert.Equal(t, "media", herr.Step)
	assert.ErrorIs(t, res.Err, errStoreDown)
}

func TestHydrateAllPreservesOrder(t *testing.T) {
	author := uuid.Must(uuid.NewV7())
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	var posts []models.Post
	for i := 0; i < 12; i++ {
		posts = append(posts, newPost(author, "post", base.Add(-time.Duration(i)*time.Minute)))
	}
	store := &memoryDetails{failing: map[uuid.UUID]bool{posts[3].ID: true, posts[7].ID: true}}

	results := NewHydrator(store, 3).HydrateAll(context.Background(), posts)
	require.Len(t, results, len(posts))

	for i, r := range results {
		assert.Equal(t, posts[i].ID, r.Post.ID, "row %d out of order", i)
		if i == 3 || i == 7 {
			assert.Error(t, r.Err)
			continue
		}
		require.NoError(t, r.Err)
		assert.Equal(t, posts[i].ID, r.Details.ID)
	}
}

func TestHydrateAllEmpty(t *testing.T) {
	results := NewHydrator(&memoryDetails{}, 4).HydrateAll(context.Background(), nil)
	assert.Empty(t, results)
}

func TestHydrateAllRecoversPanic(t *testing.T) {
	author := uuid.Must(uuid.NewV7())
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	posts := []models.Post{
		newPost(author, "fine", base),
		newPost(author, "explodes", base.Add(-time.Minute)),
		newPost(author, "also fine", base.Add(-2*time.Minute)),
	}
	store := &memoryDetails{panicking: map[uuid.UUID]bool{posts[1].ID: true}}

	var results []HydrationResult
	require.NotPanics(t, func() {
		results = NewHydrator(store, 2).HydrateAll(context.Background(), posts)
	})
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.NoError(t, results[2].Err)

	var herr *HydrationError
	require.True(t, errors.As(results[1].Err, &herr))
	assert.Equal(t, posts[1].ID, herr.PostID)
	assert.Equal(t, "recover", herr.Step)
	assert.Nil(t, results[1].Details)
}

func TestPageDropsPanickingPost(t *testing.T) {
	f := newFeedFixture()
	f.details.panicking = map[uuid.UUID]bool{f.p3.ID: true}

	page, err := f.assembler(nil).Page(context.Background(), VariantGlobal, Filters{}, "", 2)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.p2.ID}, ids(page))
	require.NotNil(t, page.NextCursor)
}
