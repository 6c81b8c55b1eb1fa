// Package export publishes listing feeds on a schedule.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	calendarapp "rentcal/internal/app/handlers/calendar"
	"rentcal/internal/app/policies"
	"rentcal/internal/app/queries"
)

// Scheduler renders and uploads the feed of every listing on each cron tick.
type Scheduler struct {
	Queries   queries.Bus
	Publisher policies.FeedPublisher
	Listings  []string
	Spec      string
	Location  *time.Location
	Logger    *slog.Logger
	// Timeout bounds one publishing round; defaults to one minute.
	Timeout time.Duration
}

// Run starts the cron loop and blocks until ctx ends.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.Queries == nil || s.Publisher == nil {
		return errors.New("export: scheduler not configured")
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(s.Spec, func() { s.PublishAll(ctx) }); err != nil {
		return fmt.Errorf("export: schedule %q: %w", s.Spec, err)
	}
	c.Start()
	if s.Logger != nil {
		s.Logger.Info("feed export scheduled", "spec", s.Spec, "listings", len(s.Listings))
	}
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// PublishAll exports each listing once and returns how many uploads succeeded.
// A failing listing is logged and skipped.
func (s *Scheduler) PublishAll(ctx context.Context) int {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	published := 0
	for _, id := range s.Listings {
		if ctx.Err() != nil {
			break
		}
		link, err := s.publish(ctx, id)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("feed export failed", "listing_id", id, "error", err)
			}
			continue
		}
		published++
		if s.Logger != nil {
			s.Logger.Debug("feed exported", "listing_id", id, "url", link)
		}
	}
	return published
}

func (s *Scheduler) publish(ctx context.Context, listingID string) (string, error) {
	feed, err := queries.Ask[calendarapp.ExportFeedQuery, calendarapp.Feed](ctx, s.Queries, calendarapp.ExportFeedQuery{ListingID: listingID})
	if err != nil {
		return "", err
	}
	return s.Publisher.Publish(ctx, feed.ListingID, feed.Body)
}
