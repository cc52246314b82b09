package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/creatist/postfeed/internal/posts"
)

// PostsAPI exposes the post service as posts.* JSON-RPC methods
type PostsAPI struct {
	svc *posts.Service
}

// NewPostsAPI creates the posts API
func NewPostsAPI(svc *posts.Service) *PostsAPI {
	return &PostsAPI{svc: svc}
}

// Register adds every posts.* method to h
func (a *PostsAPI) Register(h *JSONRPCHandler) {
	h.RegisterMethod("posts.get_feed", a.GetFeed)
	h.RegisterMethod("posts.get_following_feed", a.GetFollowingFeed)
	h.RegisterMethod("posts.get_following_feed_for_user", a.GetFollowingFeedForUser)
	h.RegisterMethod("posts.get_trending", a.GetTrending)
	h.RegisterMethod("posts.search", a.Search)
	h.RegisterMethod("posts.get_user_posts", a.GetUserPosts)
	h.RegisterMethod("posts.get_post", a.GetPost)
	h.RegisterMethod("posts.create", a.Create)
	h.RegisterMethod("posts.delete", a.Delete)
	h.RegisterMethod("posts.like", a.Like)
	h.RegisterMethod("posts.unlike", a.Unlike)
	h.RegisterMethod("posts.add_comment", a.AddComment)
	h.RegisterMethod("posts.get_comments", a.GetComments)
	h.RegisterMethod("posts.view", a.View)
}

// GetFeed handles posts.get_feed
func (a *PostsAPI) GetFeed(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p pageParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return a.svc.GetFeed(c.Request.Context(), p.Limit, string(p.Cursor))
}

// GetFollowingFeed handles posts.get_following_feed for the caller
func (a *PostsAPI) GetFollowingFeed(c *gin.Context, params json.RawMessage) (interface{}, error) {
	caller, err := requireCaller(c)
	if err != nil {
		return nil, err
	}
	var p pageParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return a.svc.GetFollowingFeed(c.Request.Context(), caller, p.Limit, string(p.Cursor))
}

// GetFollowingFeedForUser handles posts.get_following_feed_for_user
func (a *PostsAPI) GetFollowingFeedForUser(c *gin.Context, params json.RawMessage) (interface{}, error) {
	caller, err := requireCaller(c)
	if err != nil {
		return nil, err
	}
	var p userPageParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.UserID == uuid.Nil {
		return nil, NewError(ErrInvalidParams, "user_id is required")
	}
	return a.svc.GetFollowingFeedForUser(c.Request.Context(), caller, p.UserID, p.Limit, string(p.Cursor))
}

// GetTrending handles posts.get_trending
func (a *PostsAPI) GetTrending(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p pageParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return a.svc.GetTrendingFeed(c.Request.Context(), p.Limit, string(p.Cursor))
}

// Search handles posts.search
func (a *PostsAPI) Search(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p searchParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return a.svc.SearchPosts(c.Request.Context(), p.Query, p.Tag, p.Limit, string(p.Cursor))
}

// GetUserPosts handles posts.get_user_posts
func (a *PostsAPI) GetUserPosts(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p userPageParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.UserID == uuid.Nil {
		return nil, NewError(ErrInvalidParams, "user_id is required")
	}
	return a.svc.GetUserPosts(c.Request.Context(), p.UserID, p.Limit, string(p.Cursor))
}

// GetPost handles posts.get_post. An absent post is a null result.
func (a *PostsAPI) GetPost(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p postParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := requirePost(p.PostID); err != nil {
		return nil, err
	}
	post, err := a.svc.GetPostByID(c.Request.Context(), p.PostID)
	if err != nil || post == nil {
		return nil, err
	}
	return post, nil
}

// Create handles posts.create
func (a *PostsAPI) Create(c *gin.Context, params json.RawMessage) (interface{}, error) {
	caller, err := requireCaller(c)
	if err != nil {
		return nil, err
	}
	var draft posts.Draft
	if err := decodeParams(params, &draft); err != nil {
		return nil, err
	}
	id, err := a.svc.CreatePost(c.Request.Context(), caller, draft)
	if err != nil {
		return nil, err
	}
	return gin.H{"id": id}, nil
}

// Delete handles posts.delete
func (a *PostsAPI) Delete(c *gin.Context, params json.RawMessage) (interface{}, error) {
	return a.withPost(c, params, func(caller, postID uuid.UUID) error {
		return a.svc.SoftDeletePost(c.Request.Context(), postID, caller)
	})
}

// Like handles posts.like
func (a *PostsAPI) Like(c *gin.Context, params json.RawMessage) (interface{}, error) {
	return a.withPost(c, params, func(caller, postID uuid.UUID) error {
		return a.svc.Like(c.Request.Context(), postID, caller)
	})
}

// Unlike handles posts.unlike
func (a *PostsAPI) Unlike(c *gin.Context, params json.RawMessage) (interface{}, error) {
	return a.withPost(c, params, func(caller, postID uuid.UUID) error {
		return a.svc.Unlike(c.Request.Context(), postID, caller)
	})
}

// withPost runs fn for an authenticated caller and a post_id param.
func (a *PostsAPI) withPost(c *gin.Context, params json.RawMessage, fn func(caller, postID uuid.UUID) error) (interface{}, error) {
	caller, err := requireCaller(c)
	if err != nil {
		return nil, err
	}
	var p postParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := requirePost(p.PostID); err != nil {
		return nil, err
	}
	if err := fn(caller, p.PostID); err != nil {
		return nil, err
	}
	return gin.H{"success": true}, nil
}

// AddComment handles posts.add_comment
func (a *PostsAPI) AddComment(c *gin.Context, params json.RawMessage) (interface{}, error) {
	caller, err := requireCaller(c)
	if err != nil {
		return nil, err
	}
	var p addCommentParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := requirePost(p.PostID); err != nil {
		return nil, err
	}
	return a.svc.AddComment(c.Request.Context(), p.PostID, caller, p.CommentDraft)
}

// GetComments handles posts.get_comments
func (a *PostsAPI) GetComments(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p getCommentsParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := requirePost(p.PostID); err != nil {
		return nil, err
	}
	return a.svc.GetComments(c.Request.Context(), p.PostID, p.ParentCommentID, p.Limit, string(p.Cursor))
}

// View handles posts.view. Anonymous views are recorded without a user.
func (a *PostsAPI) View(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p postParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := requirePost(p.PostID); err != nil {
		return nil, err
	}

	var viewer *uuid.UUID
	if id, ok := callerID(c); ok {
		viewer = &id
	}
	if err := a.svc.RecordView(c.Request.Context(), p.PostID, viewer); err != nil {
		return nil, err
	}
	return gin.H{"success": true}, nil
}
