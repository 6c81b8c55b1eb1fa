package policies

import (
	"context"

	"rentcal/internal/domain/availability"
)

// FeedRenderer turns a listing feed into an iCalendar document.
type FeedRenderer interface {
	Render(feed availability.Feed) ([]byte, error)
}

// FeedPublisher stores a rendered feed where channel managers can fetch it.
type FeedPublisher interface {
	Publish(ctx context.Context, listingID string, body []byte) (string, error)
}
