package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "rentcal/internal/domain/listings"
)

type SettingsRepository struct {
	unit *Unit
	col  *mongo.Collection
}

type settingsDocument struct {
	ListingID       string    `bson:"_id"`
	Name            string    `bson:"name"`
	BaseRate        int       `bson:"base_rate"`
	MaxGuests       int       `bson:"max_guests"`
	ExtraGuestFee   int       `bson:"extra_guest_fee"`
	CleaningFee     int       `bson:"cleaning_fee"`
	MinimumStay     int       `bson:"minimum_stay"`
	MaximumStay     int       `bson:"maximum_stay"`
	GapDays         int       `bson:"gap_days"`
	WeeklyDiscount  float64   `bson:"weekly_discount"`
	MonthlyDiscount float64   `bson:"monthly_discount"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

func newSettingsDocument(s *domainlistings.Settings) settingsDocument {
	return settingsDocument{
		ListingID:       string(s.ListingID),
		Name:            s.Name,
		BaseRate:        s.BaseRate,
		MaxGuests:       s.MaxGuests,
		ExtraGuestFee:   s.ExtraGuestFee,
		CleaningFee:     s.CleaningFee,
		MinimumStay:     s.MinimumStay,
		MaximumStay:     s.MaximumStay,
		GapDays:         s.GapDays,
		WeeklyDiscount:  s.WeeklyDiscount,
		MonthlyDiscount: s.MonthlyDiscount,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func (d settingsDocument) toSettings() *domainlistings.Settings {
	return &domainlistings.Settings{
		ListingID:       domainlistings.ListingID(d.ListingID),
		Name:            d.Name,
		BaseRate:        d.BaseRate,
		MaxGuests:       d.MaxGuests,
		ExtraGuestFee:   d.ExtraGuestFee,
		CleaningFee:     d.CleaningFee,
		MinimumStay:     d.MinimumStay,
		MaximumStay:     d.MaximumStay,
		GapDays:         d.GapDays,
		WeeklyDiscount:  d.WeeklyDiscount,
		MonthlyDiscount: d.MonthlyDiscount,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func (r *SettingsRepository) ByListing(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Settings, error) {
	var doc settingsDocument
	if err := r.col.FindOne(r.unit.sessionContext(ctx), bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrSettingsNotFound
		}
		return nil, fmt.Errorf("mongo: load settings %s: %w", id, err)
	}
	return doc.toSettings(), nil
}

func (r *SettingsRepository) Save(ctx context.Context, s *domainlistings.Settings) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	doc := newSettingsDocument(s)
	_, err := r.col.ReplaceOne(r.unit.sessionContext(ctx), bson.M{"_id": doc.ListingID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo: save settings %s: %w", s.ListingID, err)
	}
	return nil
}

var _ domainlistings.SettingsRepository = (*SettingsRepository)(nil)
