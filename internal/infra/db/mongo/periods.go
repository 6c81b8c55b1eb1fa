package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "rentcal/internal/domain/listings"
	domainperiods "rentcal/internal/domain/periods"
	"rentcal/internal/domain/shared/daterange"
)

// PeriodRepository stores one period table. Dates are ISO strings, so
// lexical comparison in filters is calendar order.
type PeriodRepository struct {
	unit  *Unit
	col   *mongo.Collection
	table domainperiods.Table
}

type periodDocument struct {
	ID        string    `bson:"_id"`
	ListingID string    `bson:"listing_id"`
	StartDate string    `bson:"start_date"`
	EndDate   string    `bson:"end_date"`
	Rate      int       `bson:"rate,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

func newPeriodDocument(p domainperiods.Period) periodDocument {
	return periodDocument{
		ID:        string(p.ID),
		ListingID: string(p.ListingID),
		StartDate: p.Range.Start.String(),
		EndDate:   p.Range.End.String(),
		Rate:      int(p.Rate),
		CreatedAt: p.CreatedAt.UTC(),
	}
}

func (d periodDocument) toPeriod() (domainperiods.Period, error) {
	r, err := daterange.Parse(d.StartDate, d.EndDate)
	if err != nil {
		return domainperiods.Period{}, fmt.Errorf("mongo: period %s: %w", d.ID, err)
	}
	return domainperiods.Period{
		ID:        domainperiods.PeriodID(d.ID),
		ListingID: domainlistings.ListingID(d.ListingID),
		Range:     r,
		Rate:      domainperiods.Rate(d.Rate),
		CreatedAt: d.CreatedAt,
	}, nil
}

// periodFilter selects a listing's rows, restricted to those overlapping
// the window when one is set.
func periodFilter(f domainperiods.Filter) bson.M {
	filter := bson.M{"listing_id": string(f.ListingID)}
	if !f.Window.Start.IsZero() || !f.Window.End.IsZero() {
		filter["end_date"] = bson.M{"$gte": f.Window.Start.String()}
		filter["start_date"] = bson.M{"$lte": f.Window.End.String()}
	}
	return filter
}

func (r *PeriodRepository) Find(ctx context.Context, filter domainperiods.Filter) ([]domainperiods.Period, error) {
	sc := r.unit.sessionContext(ctx)
	cur, err := r.col.Find(sc, periodFilter(filter), options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: find %s: %w", r.table, err)
	}
	var docs []periodDocument
	if err := cur.All(sc, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode %s: %w", r.table, err)
	}
	out := make([]domainperiods.Period, 0, len(docs))
	for _, d := range docs {
		p, err := d.toPeriod()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Apply deletes then inserts inside the unit's transaction. A delete that
// matches fewer rows than asked means another writer got there first.
func (r *PeriodRepository) Apply(ctx context.Context, cs domainperiods.Changeset) ([]domainperiods.Period, error) {
	if err := r.unit.writable(); err != nil {
		return nil, err
	}
	if err := cs.Check(); err != nil {
		return nil, err
	}
	sc := r.unit.sessionContext(ctx)
	if ids := cs.DeleteIDs(); len(ids) > 0 {
		raw := make([]string, len(ids))
		for i, id := range ids {
			raw[i] = string(id)
		}
		res, err := r.col.DeleteMany(sc, bson.M{"_id": bson.M{"$in": raw}, "listing_id": string(cs.ListingID)})
		if err != nil {
			return nil, fmt.Errorf("mongo: delete %s: %w", r.table, err)
		}
		if res.DeletedCount != int64(len(raw)) {
			return nil, fmt.Errorf("%w: deleted %d of %d", domainperiods.ErrPeriodNotFound, res.DeletedCount, len(raw))
		}
	}
	if len(cs.Inserts) == 0 {
		return nil, nil
	}
	inserted := make([]domainperiods.Period, 0, len(cs.Inserts))
	docs := make([]any, 0, len(cs.Inserts))
	for _, p := range cs.Inserts {
		p.ID = domainperiods.PeriodID(uuid.NewString())
		inserted = append(inserted, p)
		docs = append(docs, newPeriodDocument(p))
	}
	if _, err := r.col.InsertMany(sc, docs); err != nil {
		return nil, fmt.Errorf("mongo: insert %s: %w", r.table, err)
	}
	return inserted, nil
}

var _ domainperiods.Repository = (*PeriodRepository)(nil)
