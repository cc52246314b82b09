package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/creatist/postfeed/pkg/logging"
)

// Counter names exported to Prometheus
const (
	HydrationDroppedMetric = "postfeed.hydration.dropped"
	PostsCreatedMetric     = "postfeed.posts.created"
)

type instruments struct {
	hydrationDropped metric.Int64Counter
	postsCreated     metric.Int64Counter
}

var (
	instrumentsOnce sync.Once
	service         instruments
)

// Instruments are created on first use from the global meter provider, so
// counters recorded before Init are forwarded once a provider is installed.
func loadInstruments() *instruments {
	instrumentsOnce.Do(func() {
		meter := Meter()
		service.hydrationDropped = int64Counter(meter, HydrationDroppedMetric,
			"Posts dropped from a page because their details could not be read")
		service.postsCreated = int64Counter(meter, PostsCreatedMetric, "Posts created")
	})
	return &service
}

func int64Counter(meter metric.Meter, name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		logging.GetLogger().Warn("Failed to create counter", zap.String("metric", name), zap.Error(err))
		return metricnoop.Int64Counter{}
	}
	return counter
}

// RecordHydrationDropped counts a post left out of a feed page
func RecordHydrationDropped(ctx context.Context, variant string) {
	loadInstruments().hydrationDropped.Add(ctx, 1,
		metric.WithAttributes(attribute.String("feed.variant", variant)))
}

// RecordPostCreated counts a stored post
func RecordPostCreated(ctx context.Context, collaborative bool) {
	loadInstruments().postsCreated.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("post.collaborative", collaborative)))
}
