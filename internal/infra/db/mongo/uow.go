package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"

	appoutbox "rentcal/internal/app/outbox"
	"rentcal/internal/app/uow"
	domainlistings "rentcal/internal/domain/listings"
	domainperiods "rentcal/internal/domain/periods"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB     *mongo.Database
	Outbox appoutbox.Outbox
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a session and a transaction. Read-only units read from a
// snapshot. When LockListing is set the unit bumps the listing's lock
// document first, so a second writer of the same listing hits a write
// conflict and is aborted instead of interleaving.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if opts.ReadOnly {
		txnOpts = txnOpts.SetReadConcern(readconcern.Snapshot())
	}
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	unit := &Unit{db: f.DB, session: session, outbox: f.Outbox, readOnly: opts.ReadOnly}
	if opts.LockListing != "" && !opts.ReadOnly {
		if err := unit.lock(ctx, opts.LockListing); err != nil {
			_ = unit.Rollback(ctx)
			return nil, err
		}
	}
	return unit, nil
}

type Unit struct {
	db       *mongo.Database
	session  mongo.Session
	outbox   appoutbox.Outbox
	readOnly bool
}

func (u *Unit) lock(ctx context.Context, id domainlistings.ListingID) error {
	_, err := u.db.Collection(colLocks).UpdateOne(u.sessionContext(ctx),
		bson.M{"_id": string(id)},
		bson.M{"$inc": bson.M{"version": 1}, "$set": bson.M{"locked_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo: lock listing %s: %w", id, err)
	}
	return nil
}

// sessionContext binds ctx to the unit's session so every call joins the
// transaction even when the caller's context was not bound.
func (u *Unit) sessionContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

func (u *Unit) OpenPeriods() domainperiods.Repository {
	return &PeriodRepository{unit: u, col: u.db.Collection(colOpenDates), table: domainperiods.TableOpenDates}
}

func (u *Unit) Rates() domainperiods.Repository {
	return &PeriodRepository{unit: u, col: u.db.Collection(colRates), table: domainperiods.TableRates}
}

func (u *Unit) Settings() domainlistings.SettingsRepository {
	return &SettingsRepository{unit: u, col: u.db.Collection(colSettings)}
}

func (u *Unit) Bookings() domainlistings.BookingRepository {
	return &BookingRepository{unit: u, col: u.db.Collection(colBookings)}
}

func (u *Unit) Outbox() appoutbox.Outbox {
	return unitOutbox{unit: u}
}

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return u.sessionContext(ctx)
}

func (u *Unit) writable() error {
	if u.readOnly {
		return errReadOnly
	}
	return nil
}

var errReadOnly = errors.New("mongo: write in read-only unit of work")

type unitOutbox struct {
	unit *Unit
}

func (o unitOutbox) Add(ctx context.Context, rec appoutbox.EventRecord) error {
	if err := o.unit.writable(); err != nil {
		return err
	}
	if o.unit.outbox == nil {
		return errors.New("mongo: outbox not configured")
	}
	return o.unit.outbox.Add(o.unit.sessionContext(ctx), rec)
}

var _ uow.UoWFactory = Factory{}
