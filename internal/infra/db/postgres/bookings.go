package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	domainlistings "rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/daterange"
)

type BookingRepository struct {
	q     querier
	table string
}

const bookingColumns = `id, listing_id, check_in, check_out, guests, nightly_rate, total_nights, subtotal_nights,
    discount_total, cleaning_fee, nightstay_tax_total, final_total, status, payment_status,
    guest_name, guest_email, guest_phone, updated_at`

func (r *BookingRepository) ByListing(ctx context.Context, id domainlistings.ListingID, window daterange.Range) ([]domainlistings.Booking, error) {
	sql := fmt.Sprintf(`select %s from %s where listing_id=$1`, bookingColumns, r.table)
	args := []any{string(id)}
	if !window.Start.IsZero() || !window.End.IsZero() {
		sql += ` and check_out >= $2 and check_in <= $3`
		args = append(args, window.Start.Time(), window.End.Time())
	}
	sql += ` order by check_in`
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: find bookings: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanBooking)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan bookings: %w", err)
	}
	return out, nil
}

func scanBooking(row pgx.CollectableRow) (domainlistings.Booking, error) {
	var (
		b                 domainlistings.Booking
		id, listing       string
		checkIn, checkOut time.Time
	)
	err := row.Scan(&id, &listing, &checkIn, &checkOut, &b.Guests, &b.NightlyRate, &b.TotalNights, &b.SubtotalNights,
		&b.DiscountTotal, &b.CleaningFee, &b.NightstayTaxTotal, &b.FinalTotal, &b.Status, &b.PaymentStatus,
		&b.Guest.Name, &b.Guest.Email, &b.Guest.Phone, &b.UpdatedAt)
	if err != nil {
		return b, err
	}
	b.ID = domainlistings.BookingID(id)
	b.ListingID = domainlistings.ListingID(listing)
	b.CheckIn = daterange.DayOf(checkIn)
	b.CheckOut = daterange.DayOf(checkOut)
	return b, nil
}

func (r *BookingRepository) Upsert(ctx context.Context, b domainlistings.Booking) error {
	updated := b.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err := r.q.Exec(ctx, fmt.Sprintf(`insert into %s (%s)
         values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
         on conflict (id) do update set listing_id=excluded.listing_id, check_in=excluded.check_in, check_out=excluded.check_out,
            guests=excluded.guests, nightly_rate=excluded.nightly_rate, total_nights=excluded.total_nights,
            subtotal_nights=excluded.subtotal_nights, discount_total=excluded.discount_total, cleaning_fee=excluded.cleaning_fee,
            nightstay_tax_total=excluded.nightstay_tax_total, final_total=excluded.final_total, status=excluded.status,
            payment_status=excluded.payment_status, guest_name=excluded.guest_name, guest_email=excluded.guest_email,
            guest_phone=excluded.guest_phone, updated_at=excluded.updated_at`, r.table, bookingColumns),
		string(b.ID), string(b.ListingID), b.CheckIn.Time(), b.CheckOut.Time(), b.Guests, b.NightlyRate, b.TotalNights,
		b.SubtotalNights, b.DiscountTotal, b.CleaningFee, b.NightstayTaxTotal, b.FinalTotal, b.Status, b.PaymentStatus,
		b.Guest.Name, b.Guest.Email, b.Guest.Phone, updated,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert booking %s: %w", b.ID, err)
	}
	return nil
}

func (r *BookingRepository) Delete(ctx context.Context, id domainlistings.BookingID) error {
	if _, err := r.q.Exec(ctx, fmt.Sprintf(`delete from %s where id=$1`, r.table), string(id)); err != nil {
		return fmt.Errorf("postgres: delete booking %s: %w", id, err)
	}
	return nil
}

var _ domainlistings.BookingRepository = (*BookingRepository)(nil)
