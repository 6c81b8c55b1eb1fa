package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	domainlistings "rentcal/internal/domain/listings"
	domainperiods "rentcal/internal/domain/periods"
	"rentcal/internal/domain/shared/daterange"
)

type PeriodRepository struct {
	q     querier
	table string
	kind  domainperiods.Table
}

func (r *PeriodRepository) rated() bool { return r.kind == domainperiods.TableRates }

func (r *PeriodRepository) columns() string {
	if r.rated() {
		return "id, listing_id, start_date, end_date, rate, created_at"
	}
	return "id, listing_id, start_date, end_date, 0, created_at"
}

func (r *PeriodRepository) Find(ctx context.Context, filter domainperiods.Filter) ([]domainperiods.Period, error) {
	sql := fmt.Sprintf(`select %s from %s where listing_id=$1`, r.columns(), r.table)
	args := []any{string(filter.ListingID)}
	if !filter.Window.Start.IsZero() || !filter.Window.End.IsZero() {
		sql += ` and end_date >= $2 and start_date <= $3`
		args = append(args, filter.Window.Start.Time(), filter.Window.End.Time())
	}
	sql += ` order by start_date`

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: find %s: %w", r.kind, err)
	}
	out, err := pgx.CollectRows(rows, scanPeriod)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan %s: %w", r.kind, err)
	}
	return out, nil
}

func scanPeriod(row pgx.CollectableRow) (domainperiods.Period, error) {
	var (
		p                  domainperiods.Period
		id, listing        string
		start, end, create time.Time
		rate               int
	)
	if err := row.Scan(&id, &listing, &start, &end, &rate, &create); err != nil {
		return p, err
	}
	p.ID = domainperiods.PeriodID(id)
	p.ListingID = domainlistings.ListingID(listing)
	p.Range = daterange.Range{Start: daterange.DayOf(start), End: daterange.DayOf(end)}
	p.Rate = domainperiods.Rate(rate)
	p.CreatedAt = create
	return p, nil
}

// Apply runs the deletes and inserts of cs in the unit's transaction.
func (r *PeriodRepository) Apply(ctx context.Context, cs domainperiods.Changeset) ([]domainperiods.Period, error) {
	if err := cs.Check(); err != nil {
		return nil, err
	}
	if ids := cs.DeleteIDs(); len(ids) > 0 {
		raw := make([]string, len(ids))
		for i, id := range ids {
			raw[i] = string(id)
		}
		tag, err := r.q.Exec(ctx, fmt.Sprintf(`delete from %s where listing_id=$1 and id = any($2)`, r.table), string(cs.ListingID), raw)
		if err != nil {
			return nil, fmt.Errorf("postgres: delete %s: %w", r.kind, err)
		}
		if tag.RowsAffected() != int64(len(raw)) {
			return nil, fmt.Errorf("%w: deleted %d of %d", domainperiods.ErrPeriodNotFound, tag.RowsAffected(), len(raw))
		}
	}

	inserted := make([]domainperiods.Period, 0, len(cs.Inserts))
	batch := &pgx.Batch{}
	for _, p := range cs.Inserts {
		p.ID = domainperiods.PeriodID(uuid.NewString())
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now().UTC()
		}
		inserted = append(inserted, p)
		if r.rated() {
			batch.Queue(fmt.Sprintf(`insert into %s (id, listing_id, start_date, end_date, rate, created_at) values ($1,$2,$3,$4,$5,$6)`, r.table),
				string(p.ID), string(p.ListingID), p.Range.Start.Time(), p.Range.End.Time(), int(p.Rate), p.CreatedAt)
			continue
		}
		batch.Queue(fmt.Sprintf(`insert into %s (id, listing_id, start_date, end_date, created_at) values ($1,$2,$3,$4,$5)`, r.table),
			string(p.ID), string(p.ListingID), p.Range.Start.Time(), p.Range.End.Time(), p.CreatedAt)
	}
	if batch.Len() > 0 {
		if err := sendBatch(ctx, r.q, batch); err != nil {
			return nil, fmt.Errorf("postgres: insert %s: %w", r.kind, err)
		}
	}
	return inserted, nil
}

func sendBatch(ctx context.Context, q querier, batch *pgx.Batch) error {
	sender, ok := q.(interface {
		SendBatch(context.Context, *pgx.Batch) pgx.BatchResults
	})
	if !ok {
		return fmt.Errorf("postgres: %T cannot send batches", q)
	}
	return sender.SendBatch(ctx, batch).Close()
}

var _ domainperiods.Repository = (*PeriodRepository)(nil)
