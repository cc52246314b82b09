package feed

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/creatist/postfeed/internal/models"
	"github.com/creatist/postfeed/pkg/telemetry"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page is one page of a feed
type Page struct {
	Posts      []models.PostWithDetails `json:"posts"`
	NextCursor *string                  `json:"nextCursor"`
}

// Options bounds the page size
type Options struct {
	DefaultLimit int
	MaxLimit     int
}

// Assembler turns a cursor token into a page of hydrated posts
type Assembler struct {
	rows     RowSource
	hydrator *Hydrator
	opts     Options
	logger   *zap.Logger
}

// NewAssembler creates an assembler. Zero options fall back to 10 / 100.
func NewAssembler(rows RowSource, hydrator *Hydrator, opts Options, logger *zap.Logger) *Assembler {
	if opts.MaxLimit < 1 {
		opts.MaxLimit = MaxLimit
	}
	if opts.DefaultLimit < 1 || opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = DefaultLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Assembler{
		rows:     rows,
		hydrator: hydrator,
		opts:     opts,
		logger:   logger,
	}
}

// Limit clamps a requested page size.
func (a *Assembler) Limit(requested int) int {
	if requested <= 0 {
		return a.opts.DefaultLimit
	}
	if requested > a.opts.MaxLimit {
		return a.opts.MaxLimit
	}
	return requested
}

// Page fetches one page of variant. A malformed token is treated as no
// token. Store errors are returned; hydration failures only shrink the page.
func (a *Assembler) Page(ctx context.Context, variant Variant, filters Filters, token string, limit int) (*Page, error) {
	limit = a.Limit(limit)
	plan, err := NewPlan(variant, filters, ParseCursor(token, a.logger), limit)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "feed.page", trace.WithAttributes(
		attribute.String("feed.variant", string(variant)),
		attribute.Int("feed.limit", limit),
		attribute.String("feed.position", plan.Position.Kind.String()),
	))
	defer span.End()

	rows, err := a.rows.Fetch(ctx, plan)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("fetch %s feed: %w", variant, err)
	}

	return a.assemble(ctx, plan, rows), nil
}

func (a *Assembler) assemble(ctx context.Context, plan Plan, rows []models.Post) *Page {
	pageRows := rows
	hasMore := len(rows) > plan.Limit
	if hasMore {
		pageRows = rows[:plan.Limit]
	}

	results := a.hydrator.HydrateAll(ctx, pageRows)

	posts := make([]models.PostWithDetails, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			a.logger.Warn("Dropping post that failed hydration",
				zap.String("variant", string(plan.Variant)),
				zap.String("post_id", r.Post.ID.String()),
				zap.Error(r.Err))
			telemetry.RecordHydrationDropped(ctx, string(plan.Variant))
			continue
		}
		posts = append(posts, *r.Details)
	}

	page := &Page{Posts: posts}
	if hasMore {
		// The cursor follows the rows, so a dropped last item still advances.
		next := plan.CursorAfter(pageRows[len(pageRows)-1])
		page.NextCursor = &next
	}
	return page
}
