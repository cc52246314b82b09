package models

import (
	"time"

	"github.com/google/uuid"
)

// PostComment is a root comment (nil parent) or a reply to a root comment
type PostComment struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	PostID          uuid.UUID  `gorm:"type:uuid;not null;index:idx_post_comments_post_created,priority:1;column:post_id" json:"post_id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;column:user_id" json:"user_id"`
	Content         string     `gorm:"type:text;not null;column:content" json:"content"`
	ParentCommentID *uuid.UUID `gorm:"type:uuid;index;column:parent_comment_id" json:"parent_comment_id,omitempty"`
	CreatedAt       time.Time  `gorm:"not null;index:idx_post_comments_post_created,priority:2;column:created_at" json:"created_at"`
	DeletedAt       *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

// TableName specifies the table name for PostComment
func (PostComment) TableName() string {
	return "post_comments"
}

// IsRoot reports whether the comment starts a thread
func (c *PostComment) IsRoot() bool {
	return c.ParentCommentID == nil
}

// PostLike is unique per (post, user)
type PostLike struct {
	PostID    uuid.UUID `gorm:"type:uuid;primaryKey;column:post_id" json:"post_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;column:user_id" json:"user_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at" json:"created_at"`
}

// TableName specifies the table name for PostLike
func (PostLike) TableName() string {
	return "post_likes"
}

// PostView is one view event; views are counted by rows
type PostView struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	PostID    uuid.UUID  `gorm:"type:uuid;not null;index;column:post_id" json:"post_id"`
	UserID    *uuid.UUID `gorm:"type:uuid;column:user_id" json:"user_id,omitempty"`
	CreatedAt time.Time  `gorm:"not null;column:created_at" json:"created_at"`
}

// TableName specifies the table name for PostView
func (PostView) TableName() string {
	return "post_views"
}
