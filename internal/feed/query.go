package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/creatist/postfeed/internal/models"
)

// Variant names a feed shape
type Variant string

const (
	VariantGlobal          Variant = "global"
	VariantFollowing       Variant = "following"
	VariantFollowingByUser Variant = "following_by_user"
	VariantTrending        Variant = "trending"
	VariantSearch          Variant = "search"
	VariantUser            Variant = "user"
)

// CursorShape returns the cursor shape a variant emits and consumes.
func (v Variant) CursorShape() PositionKind {
	switch v {
	case VariantFollowing, VariantFollowingByUser, VariantTrending:
		return Composite
	default:
		return TimestampOnly
	}
}

// Valid reports whether v is a known variant
func (v Variant) Valid() bool {
	switch v {
	case VariantGlobal, VariantFollowing, VariantFollowingByUser, VariantTrending, VariantSearch, VariantUser:
		return true
	}
	return false
}

// Filters carries the per-variant query inputs
type Filters struct {
	ViewerID     uuid.UUID // following: whose follow edges
	TargetUserID uuid.UUID // following_by_user
	AuthorID     uuid.UUID // user
	Query        string    // search
	Tag          string    // search, optional
}

// ErrInvalidFilters is returned when a plan lacks the inputs its variant needs
var ErrInvalidFilters = errors.New("invalid feed request")

// Plan is a validated, store-agnostic description of one page fetch.
type Plan struct {
	Variant  Variant
	Filters  Filters
	Position Position
	Limit    int
}

// NewPlan validates the filters required by variant and narrows pos to the
// variant's cursor shape.
func NewPlan(variant Variant, filters Filters, pos Position, limit int) (Plan, error) {
	if !variant.Valid() {
		return Plan{}, fmt.Errorf("%w: unknown feed variant %q", ErrInvalidFilters, variant)
	}
	if limit < 1 {
		return Plan{}, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidFilters, limit)
	}

	switch variant {
	case VariantFollowing:
		if filters.ViewerID == uuid.Nil {
			return Plan{}, fmt.Errorf("%w: following feed requires a viewer", ErrInvalidFilters)
		}
	case VariantFollowingByUser:
		if filters.TargetUserID == uuid.Nil {
			return Plan{}, fmt.Errorf("%w: following feed requires a target user", ErrInvalidFilters)
		}
	case VariantUser:
		if filters.AuthorID == uuid.Nil {
			return Plan{}, fmt.Errorf("%w: user feed requires an author", ErrInvalidFilters)
		}
	}

	return Plan{
		Variant:  variant,
		Filters:  filters,
		Position: pos.Narrow(variant.CursorShape()),
		Limit:    limit,
	}, nil
}

// FetchLimit is one more than the page size so the store reveals whether
// another page exists.
func (p Plan) FetchLimit() int {
	return p.Limit + 1
}

// FollowerID returns whose follow edges a following variant walks.
func (p Plan) FollowerID() uuid.UUID {
	if p.Variant == VariantFollowingByUser {
		return p.Filters.TargetUserID
	}
	return p.Filters.ViewerID
}

// CursorAfter encodes the position just past row in this plan's shape.
func (p Plan) CursorAfter(row models.Post) string {
	if p.Variant.CursorShape() == Composite {
		return EncodeComposite(row.CreatedAt, row.ID)
	}
	return EncodeTimestamp(row.CreatedAt)
}

// RowSource executes a plan against storage, returning at most
// plan.FetchLimit() live posts in the variant's order.
type RowSource interface {
	Fetch(ctx context.Context, plan Plan) ([]models.Post, error)
}
