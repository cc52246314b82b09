package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PositionKind tags the shape of a decoded cursor
type PositionKind int

const (
	// NoPosition starts a feed from its most recent item
	NoPosition PositionKind = iota
	// TimestampOnly positions by created_at alone
	TimestampOnly
	// Composite positions by (created_at, post id)
	Composite
)

func (k PositionKind) String() string {
	switch k {
	case TimestampOnly:
		return "timestamp"
	case Composite:
		return "composite"
	default:
		return "none"
	}
}

// Position is a decoded keyset pagination position
type Position struct {
	Kind      PositionKind
	Timestamp time.Time
	PostID    uuid.UUID
}

// AtTimestamp returns a timestamp-only position
func AtTimestamp(ts time.Time) Position {
	return Position{Kind: TimestampOnly, Timestamp: ts.UTC()}
}

// AtPost returns a composite position
func AtPost(ts time.Time, postID uuid.UUID) Position {
	return Position{Kind: Composite, Timestamp: ts.UTC(), PostID: postID}
}

// IsZero reports whether the position means "start from the top"
func (p Position) IsZero() bool {
	return p.Kind == NoPosition
}

// Narrow converts p to the given shape. A composite position narrowed to a
// timestamp shape keeps only its timestamp; a timestamp position is never
// widened since it carries no id.
func (p Position) Narrow(shape PositionKind) Position {
	if p.Kind == Composite && shape == TimestampOnly {
		return AtTimestamp(p.Timestamp)
	}
	return p
}

// Encode renders the position in its own shape
func (p Position) Encode() string {
	switch p.Kind {
	case TimestampOnly:
		return EncodeTimestamp(p.Timestamp)
	case Composite:
		return EncodeComposite(p.Timestamp, p.PostID)
	default:
		return ""
	}
}

// EncodeTimestamp encodes a timestamp-only cursor
func EncodeTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

// EncodeComposite encodes a timestamp_postid cursor
func EncodeComposite(ts time.Time, postID uuid.UUID) string {
	return EncodeTimestamp(ts) + "_" + postID.String()
}

// CursorError describes a cursor that could not be decoded
type CursorError struct {
	Token string
	Err   error
}

func (e *CursorError) Error() string {
	return fmt.Sprintf("invalid cursor %q: %v", e.Token, e.Err)
}

func (e *CursorError) Unwrap() error {
	return e.Err
}

var (
	errEmptyCursor   = errors.New("empty cursor")
	errMissingCursor = errors.New("json cursor has no \"cursor\" field")
)

// timestampLayouts are tried in order. Zone-less timestamps are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// DecodeCursor decodes any of the historical cursor shapes:
//
//	2024-05-01T10:05:00Z
//	2024-05-01T10:05:00Z_0190d1d4-...
//	{"cursor": "<either of the above>"}
func DecodeCursor(token string) (Position, error) {
	raw := strings.TrimSpace(token)
	if raw == "" {
		return Position{}, &CursorError{Token: token, Err: errEmptyCursor}
	}

	if strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}") {
		var wrapper struct {
			Cursor *string `json:"cursor"`
		}
		if err := json.Unmarshal([]byte(raw), &wrapper); err != nil {
			return Position{}, &CursorError{Token: token, Err: err}
		}
		if wrapper.Cursor == nil {
			return Position{}, &CursorError{Token: token, Err: errMissingCursor}
		}
		raw = strings.TrimSpace(*wrapper.Cursor)
		if raw == "" {
			return Position{}, &CursorError{Token: token, Err: errEmptyCursor}
		}
	}

	if tsPart, idPart, ok := strings.Cut(raw, "_"); ok {
		ts, err := parseTimestamp(tsPart)
		if err != nil {
			return Position{}, &CursorError{Token: token, Err: err}
		}
		postID, err := uuid.Parse(strings.TrimSpace(idPart))
		if err != nil {
			return Position{}, &CursorError{Token: token, Err: fmt.Errorf("post id: %w", err)}
		}
		return AtPost(ts, postID), nil
	}

	ts, err := parseTimestamp(raw)
	if err != nil {
		return Position{}, &CursorError{Token: token, Err: err}
	}
	return AtTimestamp(ts), nil
}

// ParseCursor decodes token leniently: a missing or undecodable cursor starts
// the feed from the top. Decode failures are logged, never returned.
func ParseCursor(token string, logger *zap.Logger) Position {
	if strings.TrimSpace(token) == "" {
		return Position{}
	}
	pos, err := DecodeCursor(token)
	if err != nil {
		if logger != nil {
			logger.Warn("Invalid cursor, fetching from latest",
				zap.String("cursor", token),
				zap.Error(err))
		}
		return Position{}
	}
	return pos
}

// parseTimestamp parses an ISO-8601 timestamp. A "+" in the zone offset
// arrives as a space when the cursor was put in a query string unescaped, so
// a spelling with spaces restored to "+" is tried as well.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmptyCursor
	}

	candidates := []string{s}
	if strings.Contains(s, " ") {
		candidates = append(candidates, strings.ReplaceAll(s, " ", "+"))
	}

	var firstErr error
	for _, candidate := range candidates {
		for _, layout := range timestampLayouts {
			ts, err := time.Parse(layout, candidate)
			if err == nil {
				return ts.UTC(), nil
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return time.Time{}, fmt.Errorf("timestamp: %w", firstErr)
}
