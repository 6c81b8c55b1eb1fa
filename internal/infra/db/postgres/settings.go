package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	domainlistings "rentcal/internal/domain/listings"
)

type SettingsRepository struct {
	q     querier
	table string
}

func (r *SettingsRepository) ByListing(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Settings, error) {
	s := &domainlistings.Settings{ListingID: id}
	err := r.q.QueryRow(ctx, fmt.Sprintf(`select name, base_rate, max_guests, extra_guest_fee, cleaning_fee,
            minimum_stay, maximum_stay, gap_days, weekly_discount, monthly_discount, created_at, updated_at
         from %s where listing_id=$1`, r.table), string(id),
	).Scan(&s.Name, &s.BaseRate, &s.MaxGuests, &s.ExtraGuestFee, &s.CleaningFee,
		&s.MinimumStay, &s.MaximumStay, &s.GapDays, &s.WeeklyDiscount, &s.MonthlyDiscount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainlistings.ErrSettingsNotFound
		}
		return nil, fmt.Errorf("postgres: load settings %s: %w", id, err)
	}
	return s, nil
}

func (r *SettingsRepository) Save(ctx context.Context, s *domainlistings.Settings) error {
	_, err := r.q.Exec(ctx, fmt.Sprintf(`insert into %s (listing_id, name, base_rate, max_guests, extra_guest_fee, cleaning_fee,
            minimum_stay, maximum_stay, gap_days, weekly_discount, monthly_discount, created_at, updated_at)
         values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
         on conflict (listing_id) do update set name=excluded.name, base_rate=excluded.base_rate, max_guests=excluded.max_guests,
            extra_guest_fee=excluded.extra_guest_fee, cleaning_fee=excluded.cleaning_fee, minimum_stay=excluded.minimum_stay,
            maximum_stay=excluded.maximum_stay, gap_days=excluded.gap_days, weekly_discount=excluded.weekly_discount,
            monthly_discount=excluded.monthly_discount, updated_at=excluded.updated_at`, r.table),
		string(s.ListingID), s.Name, s.BaseRate, s.MaxGuests, s.ExtraGuestFee, s.CleaningFee,
		s.MinimumStay, s.MaximumStay, s.GapDays, s.WeeklyDiscount, s.MonthlyDiscount, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save settings %s: %w", s.ListingID, err)
	}
	return nil
}

var _ domainlistings.SettingsRepository = (*SettingsRepository)(nil)
