package models

import (
	"time"

	"github.com/google/uuid"
)

// PostStatus is the publication state of a post
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
	PostStatusArchived  PostStatus = "archived"
)

// Valid reports whether s is a known status
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusPublished, PostStatusArchived:
		return true
	}
	return false
}

// PostVisibility controls who may see a post
type PostVisibility string

const (
	VisibilityPublic    PostVisibility = "public"
	VisibilityFollowers PostVisibility = "followers"
	VisibilityPrivate   PostVisibility = "private"
)

// Valid reports whether v is a known visibility
func (v PostVisibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityFollowers, VisibilityPrivate:
		return true
	}
	return false
}

// Post represents a post. A non-nil DeletedAt hides the post from every read
// except direct lookups by id.
type Post struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index:idx_posts_user_created,priority:1;column:user_id" json:"user_id"`
	Caption          string         `gorm:"type:text;not null;column:caption" json:"caption"`
	IsCollaborative  bool           `gorm:"not null;column:is_collaborative" json:"is_collaborative"`
	Status           PostStatus     `gorm:"type:varchar(16);not null;column:status" json:"status"`
	Visibility       PostVisibility `gorm:"type:varchar(16);not null;column:visibility" json:"visibility"`
	SharedFromPostID *uuid.UUID     `gorm:"type:uuid;column:shared_from_post_id" json:"shared_from_post_id,omitempty"`
	VisionboardID    *uuid.UUID     `gorm:"type:uuid;column:visionboard_id" json:"visionboard_id,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;index:idx_posts_created_id,priority:1;index:idx_posts_user_created,priority:2;column:created_at" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;column:updated_at" json:"updated_at"`
	DeletedAt        *time.Time     `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}

// Live reports whether the post has not been soft deleted
func (p *Post) Live() bool {
	return p.DeletedAt == nil
}

// MediaType tags a media attachment
type MediaType string

const (
	MediaTypeImage    MediaType = "image"
	MediaTypeVideo    MediaType = "video"
	MediaTypeAudio    MediaType = "audio"
	MediaTypeDocument MediaType = "document"
)

// Valid reports whether t is a known media type
func (t MediaType) Valid() bool {
	switch t {
	case MediaTypeImage, MediaTypeVideo, MediaTypeAudio, MediaTypeDocument:
		return true
	}
	return false
}

// PostMedia is an ordered attachment of a post
type PostMedia struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	PostID    uuid.UUID `gorm:"type:uuid;not null;index:idx_post_media_post_order,priority:1;column:post_id" json:"post_id"`
	URL       string    `gorm:"type:text;not null;column:url" json:"url"`
	Type      MediaType `gorm:"type:varchar(16);not null;column:type" json:"type"`
	Order     int       `gorm:"not null;index:idx_post_media_post_order,priority:2;column:order" json:"order"`
	CreatedAt time.Time `gorm:"not null;column:created_at" json:"created_at"`
}

// TableName specifies the table name for PostMedia
func (PostMedia) TableName() string {
	return "post_media"
}

// PostTag represents a post-to-tag mapping
type PostTag struct {
	PostID uuid.UUID `gorm:"type:uuid;primaryKey;column:post_id" json:"post_id"`
	Tag    string    `gorm:"type:varchar(64);primaryKey;index;column:tag" json:"tag"`
}

// TableName specifies the table name for PostTag
func (PostTag) TableName() string {
	return "post_tags"
}
