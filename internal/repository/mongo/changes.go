package mongo

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

const defaultPollInterval = 2 * time.Second

// watchCollection opens a change stream on the collection and emits a signal
// per change event. Standalone servers have no change streams; then, or when
// the stream dies, it falls back to a signal every pollInterval. The channel
// is closed when ctx ends.
func watchCollection(ctx context.Context, collection *mongo.Collection, pollInterval time.Duration) <-chan struct{} {
	out := make(chan struct{}, 1)
	signal := func() {
		select {
		case out <- struct{}{}:
		default:
		}
	}

	go func() {
		defer close(out)

		stream, err := collection.Watch(ctx, mongo.Pipeline{})
		if err == nil {
			for stream.Next(ctx) {
				signal()
			}
			streamErr := stream.Err()
			_ = stream.Close(context.Background())
			if ctx.Err() != nil {
				return
			}
			err = streamErr
		}
		log.WithError(err).Warnf("change stream unavailable for %s, polling every %s", collection.Name(), pollInterval)
		poll(ctx, pollInterval, signal)
	}()

	return out
}

func poll(ctx context.Context, interval time.Duration, signal func()) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			signal()
		}
	}
}
