package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	colOpenDates   = "open_dates"
	colRates       = "rates"
	colSettings    = "listing_settings"
	colBookings    = "bookings"
	colLocks       = "listing_locks"
	colIdempotency = "app_idempotency"
	colInbox       = "app_inbox"
)

type Client struct {
	DB *mongo.Database
}

// New connects and verifies the server is reachable. Transactions need a
// replica set; a standalone server fails on the first Begin.
func New(ctx context.Context, uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := m.Ping(ctx, nil); err != nil {
		_ = m.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the indexes every collection relies on. It is safe
// to run on every start.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	byListing := mongo.IndexModel{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "start_date", Value: 1}}}
	plan := map[string][]mongo.IndexModel{
		colOpenDates: {byListing},
		colRates:     {byListing},
		colBookings:  {{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "check_in", Value: 1}}}},
		colInbox: {{
			Keys:    bson.D{{Key: "event_id", Value: 1}, {Key: "consumer", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
	}
	for name, models := range plan {
		if _, err := c.DB.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: indexes for %s: %w", name, err)
		}
	}
	return nil
}
