package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/creatist/postfeed/internal/posts"
)

// PostsREST mirrors the posts.* methods under /api/v1/posts
type PostsREST struct {
	svc    *posts.Service
	logger *zap.Logger
}

// NewPostsREST creates the REST handlers
func NewPostsREST(svc *posts.Service, logger *zap.Logger) *PostsREST {
	return &PostsREST{svc: svc, logger: logger}
}

// Register mounts the handlers on g
func (r *PostsREST) Register(g *gin.RouterGroup) {
	g.GET("", r.feed)
	g.POST("", r.create)
	g.GET("/following", r.followingFeed)
	g.GET("/following/:userId", r.followingFeedForUser)
	g.GET("/trending", r.trending)
	g.GET("/search", r.search)
	g.GET("/user/:userId", r.userPosts)
	g.GET("/:postId", r.getPost)
	g.DELETE("/:postId", r.deletePost)
	g.POST("/:postId/like", r.like)
	g.DELETE("/:postId/like", r.unlike)
	g.GET("/:postId/comments", r.comments)
	g.POST("/:postId/comments", r.addComment)
	g.POST("/:postId/views", r.view)
}

func (r *PostsREST) fail(c *gin.Context, err error) {
	code, status, message := classify(err)
	if status >= http.StatusInternalServerError {
		r.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

func queryLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, NewError(ErrInvalidParams, "limit must be an integer")
	}
	return n, nil
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, NewError(ErrInvalidParams, name+" must be a uuid")
	}
	return id, nil
}

func (r *PostsREST) feed(c *gin.Context) {
	limit, err := queryLimit(c)
	if err != nil {
		r.fail(c, err)
		return
	}
	page, err := r.svc.GetFeed(c.Request.Context(), limit, c.Query("cursor"))
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (r *PostsREST) followingFeed(c *gin.Context) {
	caller, err := requireCaller(c)
	if err != nil {
		r.fail(c, err)
		return
	}
	limit, err := queryLimit(c)
	if err != nil {
		r.fail(c, err)
		return
	}
	page, err := r.svc.GetFollowingFeed(c.Request.Context(), caller, limit, c.Query("cursor"))
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (r *PostsREST) followingFeedForUser(c *gin.Context) {
	caller, err := requireCaller(c)
	if err != nil {
		r.fail(c, err)
		return
	}
	target, err := pathUUID(c, "userId")
	if err != nil {
		r.fail(c, err)
		return
	}
	limit, err := queryLimit(c)
	if err != nil {
		r.fail(c, err)
		return
	}
	page, err := r.svc.GetFollowingFeedForUser(c.Request.Context(), caller, target, limit, c.Query("cursor"))
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (r *PostsREST) trending(c *gin.Context) {
	limit, err := queryLimit(c)
	if err != nil {
		r.fail(c, err)
		return
	}
	page, err := r.svc.GetTrendingFeed(c.Request.Context(), limit, c.Query("cursor"))
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (r *PostsREST) search(c *gin.Context) {
	limit, err := queryLimit(c)
	if err != nil {
		r.fail(c, err)
		return
	}
	page, err := r.svc.SearchPosts(c.Request.Context(), c.Query("q"), c.Query("tag"), limit, c.Query("cursor"))
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (r *PostsREST) userPosts(c *gin.Context) {
	author, err := pathUUID(c, "userId")
	if err != nil {
		r.fail(c, err)
		return
	}
	limit, err := queryLimit(c)
	if err != nil {
		r.fail(c, err)
		return
	}
	page, err := r.svc.GetUserPosts(c.Request.Context(), author, limit, c.Query("cursor"))
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (r *PostsREST) getPost(c *gin.Context) {
	postID, err := pathUUID(c, "postId")
	if err != nil {
		r.fail(c, err)
		return
	}
	post, err := r.svc.GetPostByID(c.Request.Context(), postID)
	if err != nil {
		r.fail(c, err)
		return
	}
	if post == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "post not found"}})
		return
	}
	c.JSON(http.StatusOK, post)
}

func (r *PostsREST) create(c *gin.Context) {
	caller, err := requireCaller(c)
	if err != nil {
		r.fail(c, err)
		return
	}
	var draft posts.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		r.fail(c, invalidParams(err))
		return
	}
	id, err := r.svc.CreatePost(c.Request.Context(), caller, draft)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// postAction runs fn for an authenticated caller on the :postId post and
// answers 204.
func (r *PostsREST) postAction(c *gin.Context, fn func(caller, postID uuid.UUID) error) {
	caller, err := requireCaller(c)
	if err != nil {
		r.fail(c, err)
		return
	}
	postID, err := pathUUID(c, "postId")
	if err != nil {
		r.fail(c, err)
		return
	}
	if err := fn(caller, postID); err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *PostsREST) deletePost(c *gin.Context) {
	r.postAction(c, func(caller, postID uuid.UUID) error {
		return r.svc.SoftDeletePost(c.Request.Context(), postID, caller)
	})
}

func (r *PostsREST) like(c *gin.Context) {
	r.postAction(c, func(caller, postID uuid.UUID) error {
		return r.svc.Like(c.Request.Context(), postID, caller)
	})
}

func (r *PostsREST) unlike(c *gin.Context) {
	r.postAction(c, func(caller, postID uuid.UUID) error {
		return r.svc.Unlike(c.Request.Context(), postID, caller)
	})
}

func (r *PostsREST) view(c *gin.Context) {
	postID, err := pathUUID(c, "postId")
	if err != nil {
		r.fail(c, err)
		return
	}
	var viewer *uuid.UUID
	if id, ok := callerID(c); ok {
		viewer = &id
	}
	if err := r.svc.RecordView(c.Request.Context(), postID, viewer); err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *PostsREST) addComment(c *gin.Context) {
	caller, err := requireCaller(c)
	if err != nil {
		r.fail(c, err)
		return
	}
	postID, err := pathUUID(c, "postId")
	if err != nil {
		r.fail(c, err)
		return
	}
	var draft posts.CommentDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		r.fail(c, invalidParams(err))
		return
	}
	comment, err := r.svc.AddComment(c.Request.Context(), postID, caller, draft)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (r *PostsREST) comments(c *gin.Context) {
	postID, err := pathUUID(c, "postId")
	if err != nil {
		r.fail(c, err)
		return
	}
	limit, err := queryLimit(c)
	if err != nil {
		r.fail(c, err)
		return
	}
	var parent *uuid.UUID
	if raw := c.Query("parent_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			r.fail(c, NewError(ErrInvalidParams, "parent_id must be a uuid"))
			return
		}
		parent = &id
	}
	page, err := r.svc.GetComments(c.Request.Context(), postID, parent, limit, c.Query("cursor"))
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
