package api

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/creatist/postfeed/internal/posts"
)

// cursorParam accepts a cursor given as a JSON string or as the legacy
// {"cursor": ...} object, which is passed to the decoder verbatim.
type cursorParam string

func (p *cursorParam) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*p = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = cursorParam(s)
	default:
		*p = cursorParam(data)
	}
	return nil
}

type pageParams struct {
	Limit  int         `json:"limit"`
	Cursor cursorParam `json:"cursor"`
}

type userPageParams struct {
	UserID uuid.UUID `json:"user_id"`
	pageParams
}

type searchParams struct {
	Query string `json:"query"`
	Tag   string `json:"tag"`
	pageParams
}

type postParams struct {
	PostID uuid.UUID `json:"post_id"`
}

type addCommentParams struct {
	PostID uuid.UUID `json:"post_id"`
	posts.CommentDraft
}

type getCommentsParams struct {
	PostID          uuid.UUID  `json:"post_id"`
	ParentCommentID *uuid.UUID `json:"parent_comment_id"`
	pageParams
}

// decodeParams unmarshals named params into dst. Absent params leave dst
// zero.
func decodeParams(params json.RawMessage, dst interface{}) error {
	trimmed := bytes.TrimSpace(params)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return invalidParams(err)
	}
	return nil
}

func requirePost(id uuid.UUID) error {
	if id == uuid.Nil {
		return NewError(ErrInvalidParams, "post_id is required")
	}
	return nil
}
