package repository

import (
	"context"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/feed"
)

// publish announces committed writes; a nil publisher disables the feed
func publish(ctx context.Context, pub feed.Publisher, changes ...feed.Change) {
	if pub == nil {
		return
	}
	// the write is committed; a caller that already gave up must not
	// suppress the notification
	ctx = context.WithoutCancel(ctx)
	for _, c := range changes {
		pub.Publish(ctx, c)
	}
}
