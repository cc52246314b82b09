// Package posts implements post creation, deletion and engagement, and the
// read facade over the feed assembler.
package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/creatist/postfeed/internal/boards"
	"github.com/creatist/postfeed/internal/db"
	"github.com/creatist/postfeed/internal/feed"
	"github.com/creatist/postfeed/internal/models"
	"github.com/creatist/postfeed/pkg/telemetry"
)

const (
	MaxCaptionLength = 2200
	MaxCommentLength = 2000
	MaxTagLength     = 64
)

// ErrValidation marks input rejected before any storage is touched
var ErrValidation = errors.New("validation failed")

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// PostStore persists posts
type PostStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	CreateWithChildren(ctx context.Context, post *models.Post, media []models.PostMedia, tags []models.PostTag, collaborators []models.PostCollaborator) error
	SoftDelete(ctx context.Context, postID, userID uuid.UUID) (bool, error)
}

// CommentStore persists comments
type CommentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.PostComment, error)
	Create(ctx context.Context, comment *models.PostComment) error
	List(ctx context.Context, q db.CommentQuery) ([]models.PostComment, error)
}

// EngagementStore persists likes and views
type EngagementStore interface {
	Like(ctx context.Context, postID, userID uuid.UUID) error
	Unlike(ctx context.Context, postID, userID uuid.UUID) error
	RecordView(ctx context.Context, view *models.PostView) error
}

// Service is the post service
type Service struct {
	posts      PostStore
	comments   CommentStore
	engagement EngagementStore
	boards     boards.Directory
	feeds      *feed.Assembler
	hydrator   *feed.Hydrator
	logger     *zap.Logger
	now        func() time.Time
}

// Deps groups the collaborators of a Service
type Deps struct {
	Posts      PostStore
	Comments   CommentStore
	Engagement EngagementStore
	Boards     boards.Directory
	Feeds      *feed.Assembler
	Hydrator   *feed.Hydrator
	Logger     *zap.Logger
}

// NewService creates a post service
func NewService(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		posts:      d.Posts,
		comments:   d.Comments,
		engagement: d.Engagement,
		boards:     d.Boards,
		feeds:      d.Feeds,
		hydrator:   d.Hydrator,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// MediaDraft is a media attachment of a new post
type MediaDraft struct {
	URL   string           `json:"url"`
	Type  models.MediaType `json:"type"`
	Order int              `json:"order"`
}

// CollaboratorDraft names a collaborator of a new post
type CollaboratorDraft struct {
	UserID uuid.UUID               `json:"user_id"`
	Role   models.CollaboratorRole `json:"role"`
}

// Draft is the input of CreatePost
type Draft struct {
	Caption          string                `json:"caption"`
	Status           models.PostStatus     `json:"status"`
	Visibility       models.PostVisibility `json:"visibility"`
	SharedFromPostID *uuid.UUID            `json:"shared_from_post_id"`
	VisionboardID    *uuid.UUID            `json:"visionboard_id"`
	Media            []MediaDraft          `json:"media"`
	Tags             []string              `json:"tags"`
	// Collaborators are merged with the board's accepted assignments, first
	// entry per user winning. The author is excluded from the merged list,
	// so naming only the author does not make the post collaborative.
	Collaborators []CollaboratorDraft `json:"collaborators"`
}

// CreatePost validates draft and stores the post with all of its children
// atomically. It returns the new post's id.
func (s *Service) CreatePost(ctx context.Context, authorID uuid.UUID, draft Draft) (uuid.UUID, error) {
	ctx, span := telemetry.StartSpan(ctx, "posts.create")
	defer span.End()

	if authorID == uuid.Nil {
		return uuid.Nil, invalid("author is required")
	}

	caption := strings.TrimSpace(draft.Caption)
	if caption == "" {
		return uuid.Nil, invalid("caption must not be empty")
	}
	if utf8.RuneCountInString(caption) > MaxCaptionLength {
		return uuid.Nil, invalid("caption exceeds %d characters", MaxCaptionLength)
	}

	status := draft.Status
	if status == "" {
		status = models.PostStatusPublished
	}
	if !status.Valid() {
		return uuid.Nil, invalid("unknown status %q", status)
	}

	visibility := draft.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	if !visibility.Valid() {
		return uuid.Nil, invalid("unknown visibility %q", visibility)
	}

	for i, m := range draft.Media {
		if strings.TrimSpace(m.URL) == "" {
			return uuid.Nil, invalid("media %d has no url", i)
		}
		if !m.Type.Valid() {
			return uuid.Nil, invalid("media %d has unknown type %q", i, m.Type)
		}
	}

	tags, err := normalizeTags(draft.Tags)
	if err != nil {
		return uuid.Nil, err
	}

	explicit, err := explicitCollaborators(draft.Collaborators)
	if err != nil {
		return uuid.Nil, err
	}

	var fromBoard []boards.Assignment
	if draft.VisionboardID != nil && s.boards != nil {
		fromBoard, err = s.boards.AcceptedAssignments(ctx, *draft.VisionboardID)
		if err != nil {
			span.RecordError(err)
			return uuid.Nil, fmt.Errorf("load board collaborators: %w", err)
		}
	}
	collaborators := mergeCollaborators(authorID, explicit, fromBoard)

	postID, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generate post id: %w", err)
	}
	now := s.now()

	post := &models.Post{
		ID:               postID,
		UserID:           authorID,
		Caption:          caption,
		IsCollaborative:  len(collaborators) > 0,
		Status:           status,
		Visibility:       visibility,
		SharedFromPostID: draft.SharedFromPostID,
		VisionboardID:    draft.VisionboardID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	media := make([]models.PostMedia, 0, len(draft.Media))
	for _, m := range draft.Media {
		mediaID, err := uuid.NewV7()
		if err != nil {
			return uuid.Nil, fmt.Errorf("generate media id: %w", err)
		}
		media = append(media, models.PostMedia{
			ID:        mediaID,
			PostID:    postID,
			URL:       strings.TrimSpace(m.URL),
			Type:      m.Type,
			Order:     m.Order,
			CreatedAt: now,
		})
	}

	tagRows := make([]models.PostTag, 0, len(tags))
	for _, tag := range tags {
		tagRows = append(tagRows, models.PostTag{PostID: postID, Tag: tag})
	}

	collaboratorRows := make([]models.PostCollaborator, 0, len(collaborators))
	for _, c := range collaborators {
		collaboratorRows = append(collaboratorRows, models.PostCollaborator{PostID: postID, UserID: c.UserID, Role: c.Role})
	}

	if err := s.posts.CreateWithChildren(ctx, post, media, tagRows, collaboratorRows); err != nil {
		span.RecordError(err)
		return uuid.Nil, fmt.Errorf("create post: %w", err)
	}

	span.SetAttributes(attribute.String("post.id", postID.String()))
	telemetry.RecordPostCreated(ctx, post.IsCollaborative)
	s.logger.Info("Post created",
		zap.String("post_id", postID.String()),
		zap.String("user_id", authorID.String()),
		zap.Int("media", len(media)),
		zap.Int("collaborators", len(collaboratorRows)))

	return postID, nil
}

// normalizeTags trims tags, drops empty ones and removes duplicates while
// keeping first-seen order.
func normalizeTags(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if utf8.RuneCountInString(t) > MaxTagLength {
			return nil, invalid("tag %q exceeds %d characters", t, MaxTagLength)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags, nil
}

func explicitCollaborators(drafts []CollaboratorDraft) ([]CollaboratorDraft, error) {
	out := make([]CollaboratorDraft, 0, len(drafts))
	for i, c := range drafts {
		if c.UserID == uuid.Nil {
			return nil, invalid("collaborator %d has no user", i)
		}
		if c.Role == "" {
			c.Role = models.RoleCollaborator
		}
		if !c.Role.Valid() {
			return nil, invalid("collaborator %d has unknown role %q", i, c.Role)
		}
		out = append(out, c)
	}
	return out, nil
}

// mergeCollaborators combines explicit collaborators with board assignments.
// The first entry for a user wins and explicit entries come first; the
// author is never listed.
func mergeCollaborators(authorID uuid.UUID, explicit []CollaboratorDraft, fromBoard []boards.Assignment) []CollaboratorDraft {
	seen := map[uuid.UUID]struct{}{authorID: {}}
	merged := make([]CollaboratorDraft, 0, len(explicit)+len(fromBoard))

	add := func(c CollaboratorDraft) {
		if _, dup := seen[c.UserID]; dup {
			return
		}
		seen[c.UserID] = struct{}{}
		merged = append(merged, c)
	}

	for _, c := range explicit {
		add(c)
	}
	for _, a := range fromBoard {
		add(CollaboratorDraft{UserID: a.UserID, Role: a.Role()})
	}
	return merged
}

// SoftDeletePost hides a post authored by callerID. Deleting someone else's
// post, an unknown post or an already deleted post changes nothing.
func (s *Service) SoftDeletePost(ctx context.Context, postID, callerID uuid.UUID) error {
	changed, err := s.posts.SoftDelete(ctx, postID, callerID)
	if err != nil {
		return fmt.Errorf("delete post %s: %w", postID, err)
	}
	if !changed {
		s.logger.Info("Soft delete matched no post owned by caller",
			zap.String("post_id", postID.String()),
			zap.String("caller_id", callerID.String()))
		return nil
	}
	s.logger.Info("Post deleted", zap.String("post_id", postID.String()))
	return nil
}

// Like records that userID likes postID; repeating it is a no-op.
func (s *Service) Like(ctx context.Context, postID, userID uuid.UUID) error {
	if err := s.engagement.Like(ctx, postID, userID); err != nil {
		return fmt.Errorf("like post %s: %w", postID, err)
	}
	return nil
}

// Unlike removes userID's like of postID if present.
func (s *Service) Unlike(ctx context.Context, postID, userID uuid.UUID) error {
	if err := s.engagement.Unlike(ctx, postID, userID); err != nil {
		return fmt.Errorf("unlike post %s: %w", postID, err)
	}
	return nil
}

// RecordView appends a view of postID. userID is nil for anonymous viewers.
func (s *Service) RecordView(ctx context.Context, postID uuid.UUID, userID *uuid.UUID) error {
	viewID, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate view id: %w", err)
	}
	view := &models.PostView{ID: viewID, PostID: postID, UserID: userID, CreatedAt: s.now()}
	if err := s.engagement.RecordView(ctx, view); err != nil {
		return fmt.Errorf("record view of %s: %w", postID, err)
	}
	return nil
}

// CommentDraft is the input of AddComment
type CommentDraft struct {
	Content         string     `json:"content"`
	ParentCommentID *uuid.UUID `json:"parent_comment_id"`
}

// AddComment adds a root comment or a reply to a root comment of the same post.
func (s *Service) AddComment(ctx context.Context, postID, userID uuid.UUID, draft CommentDraft) (*models.PostComment, error) {
	content := strings.TrimSpace(draft.Content)
	if content == "" {
		return nil, invalid("comment must not be empty")
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return nil, invalid("comment exceeds %d characters", MaxCommentLength)
	}

	if draft.ParentCommentID != nil {
		parent, err := s.comments.GetByID(ctx, *draft.ParentCommentID)
		if err != nil {
			return nil, fmt.Errorf("load parent comment: %w", err)
		}
		if parent == nil || parent.PostID != postID {
			return nil, invalid("parent comment %s not found on post %s", *draft.ParentCommentID, postID)
		}
		if !parent.IsRoot() {
			return nil, invalid("replies can only answer a root comment")
		}
	}

	commentID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate comment id: %w", err)
	}
	comment := &models.PostComment{
		ID:              commentID,
		PostID:          postID,
		UserID:          userID,
		Content:         content,
		ParentCommentID: draft.ParentCommentID,
		CreatedAt:       s.now(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("add comment to %s: %w", postID, err)
	}
	return comment, nil
}

// CommentPage is one page of a comment thread
type CommentPage struct {
	Comments   []models.PostComment `json:"comments"`
	NextCursor *string              `json:"nextCursor"`
}

// GetComments lists root comments of a post, or the replies to parentID,
// oldest first. The cursor is "<created_at>_<id>" of the last comment seen;
// a bare timestamp token is still accepted and resumes strictly after it.
func (s *Service) GetComments(ctx context.Context, postID uuid.UUID, parentID *uuid.UUID, limit int, cursor string) (*CommentPage, error) {
	limit = s.feeds.Limit(limit)

	q := db.CommentQuery{PostID: postID, ParentID: parentID, Limit: limit + 1}
	pos := feed.ParseCursor(cursor, s.logger)
	if !pos.IsZero() {
		after := pos.Timestamp
		q.After = &after
	}
	if pos.Kind == feed.Composite {
		afterID := pos.PostID
		q.AfterID = &afterID
	}

	comments, err := s.comments.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list comments of %s: %w", postID, err)
	}

	page := &CommentPage{Comments: comments}
	if len(comments) > limit {
		page.Comments = comments[:limit]
		last := page.Comments[limit-1]
		next := feed.EncodeComposite(last.CreatedAt, last.ID)
		page.NextCursor = &next
	}
	return page, nil
}

// GetPostByID returns a live post with its details, or nil when the post is
// absent, deleted or its details cannot be read.
func (s *Service) GetPostByID(ctx context.Context, postID uuid.UUID) (*models.PostWithDetails, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", postID, err)
	}
	if post == nil {
		return nil, nil
	}

	res := s.hydrator.Hydrate(ctx, *post)
	if res.Err != nil {
		s.logger.Warn("Post failed hydration", zap.String("post_id", postID.String()), zap.Error(res.Err))
		return nil, nil
	}
	return res.Details, nil
}

// GetFeed returns the global feed, newest first
func (s *Service) GetFeed(ctx context.Context, limit int, cursor string) (*feed.Page, error) {
	return s.feeds.Page(ctx, feed.VariantGlobal, feed.Filters{}, cursor, limit)
}

// GetFollowingFeed returns posts by authors viewerID follows
func (s *Service) GetFollowingFeed(ctx context.Context, viewerID uuid.UUID, limit int, cursor string) (*feed.Page, error) {
	return s.feeds.Page(ctx, feed.VariantFollowing, feed.Filters{ViewerID: viewerID}, cursor, limit)
}

// GetFollowingFeedForUser returns the following feed of targetUserID as seen by viewerID
func (s *Service) GetFollowingFeedForUser(ctx context.Context, viewerID, targetUserID uuid.UUID, limit int, cursor string) (*feed.Page, error) {
	return s.feeds.Page(ctx, feed.VariantFollowingByUser, feed.Filters{ViewerID: viewerID, TargetUserID: targetUserID}, cursor, limit)
}

// GetTrendingFeed orders posts by likes, then views, then recency
func (s *Service) GetTrendingFeed(ctx context.Context, limit int, cursor string) (*feed.Page, error) {
	return s.feeds.Page(ctx, feed.VariantTrending, feed.Filters{}, cursor, limit)
}

// SearchPosts matches captions case-insensitively, optionally within a tag
func (s *Service) SearchPosts(ctx context.Context, query, tag string, limit int, cursor string) (*feed.Page, error) {
	return s.feeds.Page(ctx, feed.VariantSearch, feed.Filters{Query: query, Tag: tag}, cursor, limit)
}

// GetUserPosts returns posts authored by userID
func (s *Service) GetUserPosts(ctx context.Context, userID uuid.UUID, limit int, cursor string) (*feed.Page, error) {
	return s.feeds.Page(ctx, feed.VariantUser, feed.Filters{AuthorID: userID}, cursor, limit)
}
