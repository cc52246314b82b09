package models

// PostWithDetails is the read-side aggregate returned by every feed. It is
// rebuilt from the normalized tables on each read and never stored.
type PostWithDetails struct {
	Post
	Media         []PostMedia        `json:"media"`
	Tags          []string           `json:"tags"`
	Collaborators []PostCollaborator `json:"collaborators"`
	LikeCount     int64              `json:"like_count"`
	CommentCount  int64              `json:"comment_count"`
	ViewCount     int64              `json:"view_count"`
	AuthorName    *string            `json:"author_name"`
	TopComments   []PostComment      `json:"top_comments"`
}
