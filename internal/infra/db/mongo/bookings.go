package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
)

// BookingRepository is the projected read model of external bookings.
type BookingRepository struct {
	unit *Unit
	col  *mongo.Collection
}

type guestDocument struct {
	Name  string `bson:"name"`
	Email string `bson:"email,omitempty"`
	Phone string `bson:"phone,omitempty"`
}

type bookingDocument struct {
	ID                string        `bson:"_id"`
	ListingID         string        `bson:"listing_id"`
	CheckIn           string        `bson:"check_in"`
	CheckOut          string        `bson:"check_out"`
	Guests            int           `bson:"guests"`
	NightlyRate       int           `bson:"nightly_rate"`
	TotalNights       int           `bson:"total_nights"`
	SubtotalNights    int           `bson:"subtotal_nights"`
	DiscountTotal     int           `bson:"discount_total"`
	CleaningFee       int           `bson:"cleaning_fee"`
	NightstayTaxTotal int           `bson:"nightstay_tax_total"`
	FinalTotal        int           `bson:"final_total"`
	Status            string        `bson:"status"`
	PaymentStatus     string        `bson:"payment_status"`
	Guest             guestDocument `bson:"guest"`
	UpdatedAt         time.Time     `bson:"updated_at"`
}

func newBookingDocument(b domainlistings.Booking) bookingDocument {
	return bookingDocument{
		ID:                string(b.ID),
		ListingID:         string(b.ListingID),
		CheckIn:           b.CheckIn.String(),
		CheckOut:          b.CheckOut.String(),
		Guests:            b.Guests,
		NightlyRate:       b.NightlyRate,
		TotalNights:       b.TotalNights,
		SubtotalNights:    b.SubtotalNights,
		DiscountTotal:     b.DiscountTotal,
		CleaningFee:       b.CleaningFee,
		NightstayTaxTotal: b.NightstayTaxTotal,
		FinalTotal:        b.FinalTotal,
		Status:            b.Status,
		PaymentStatus:     b.PaymentStatus,
		Guest:             guestDocument{Name: b.Guest.Name, Email: b.Guest.Email, Phone: b.Guest.Phone},
		UpdatedAt:         b.UpdatedAt.UTC(),
	}
}

func (d bookingDocument) toBooking() (domainlistings.Booking, error) {
	stay, err := daterange.Parse(d.CheckIn, d.CheckOut)
	if err != nil {
		return domainlistings.Booking{}, fmt.Errorf("mongo: booking %s: %w", d.ID, err)
	}
	return domainlistings.Booking{
		ID:                domainlistings.BookingID(d.ID),
		ListingID:         domainlistings.ListingID(d.ListingID),
		CheckIn:           stay.Start,
		CheckOut:          stay.End,
		Guests:            d.Guests,
		NightlyRate:       d.NightlyRate,
		TotalNights:       d.TotalNights,
		SubtotalNights:    d.SubtotalNights,
		DiscountTotal:     d.DiscountTotal,
		CleaningFee:       d.CleaningFee,
		NightstayTaxTotal: d.NightstayTaxTotal,
		FinalTotal:        d.FinalTotal,
		Status:            d.Status,
		PaymentStatus:     d.PaymentStatus,
		Guest:             domainlistings.Guest{Name: d.Guest.Name, Email: d.Guest.Email, Phone: d.Guest.Phone},
		UpdatedAt:         d.UpdatedAt,
	}, nil
}

func bookingFilter(id domainlistings.ListingID, window daterange.Range) bson.M {
	filter := bson.M{"listing_id": string(id)}
	if !window.Start.IsZero() || !window.End.IsZero() {
		filter["check_out"] = bson.M{"$gte": window.Start.String()}
		filter["check_in"] = bson.M{"$lte": window.End.String()}
	}
	return filter
}

func (r *BookingRepository) ByListing(ctx context.Context, id domainlistings.ListingID, window daterange.Range) ([]domainlistings.Booking, error) {
	sc := r.unit.sessionContext(ctx)
	cur, err := r.col.Find(sc, bookingFilter(id, window), options.Find().SetSort(bson.D{{Key: "check_in", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: find bookings: %w", err)
	}
	var docs []bookingDocument
	if err := cur.All(sc, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode bookings: %w", err)
	}
	out := make([]domainlistings.Booking, 0, len(docs))
	for _, d := range docs {
		b, err := d.toBooking()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *BookingRepository) Upsert(ctx context.Context, b domainlistings.Booking) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	doc := newBookingDocument(b)
	if _, err := r.col.ReplaceOne(r.unit.sessionContext(ctx), bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("mongo: upsert booking %s: %w", b.ID, err)
	}
	return nil
}

func (r *BookingRepository) Delete(ctx context.Context, id domainlistings.BookingID) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	if _, err := r.col.DeleteOne(r.unit.sessionContext(ctx), bson.M{"_id": string(id)}); err != nil {
		return fmt.Errorf("mongo: delete booking %s: %w", id, err)
	}
	return nil
}

var _ domainlistings.BookingRepository = (*BookingRepository)(nil)
