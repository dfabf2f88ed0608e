package repository

import (
	"context"
	"errors"
	"fmt"
	quotaerrors "suroloyo/internal/quota/errors"
	"suroloyo/pkg/config"
	"suroloyo/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	CollectionName = "daily_quota"
)

// QuotaRepository exposes the conditional primitives the ledger is built on.
// Every write either matches the expected version or reports
// ErrVersionConflict; there is no unconditional read-modify-write path.
type QuotaRepository interface {
	Get(ctx context.Context, date string) (*model.QuotaDay, error)
	EnsureDay(ctx context.Context, date string, defaultCapacity int) (*model.QuotaDay, error)
	IncrementReserved(ctx context.Context, date string, expectedVersion int64, count int) error
	DecrementReservedFloored(ctx context.Context, date string, count int) error
	SetCapacity(ctx context.Context, date string, expectedVersion int64, totalCapacity int, isOpen bool) error
	FindRange(ctx context.Context, from, to string) ([]*model.QuotaDay, error)
}

type mongoQuotaRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoQuotaRepository(cfg *config.Config) QuotaRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoQuotaRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoQuotaRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoQuotaRepository) Get(ctx context.Context, date string) (*model.QuotaDay, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var day model.QuotaDay
	err := r.collection.FindOne(ctx, bson.M{"_id": date}).Decode(&day)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, quotaerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find quota day: %w", err)
	}

	return &day, nil
}

// EnsureDay lazily creates the day record at the default capacity. The unique
// _id (the date itself) makes concurrent creation race-free: the loser of the
// insert race reads back the winner's document.
func (r *mongoQuotaRepository) EnsureDay(ctx context.Context, date string, defaultCapacity int) (*model.QuotaDay, error) {
	day, err := r.Get(ctx, date)
	if err == nil {
		return day, nil
	}
	if !errors.Is(err, quotaerrors.ErrNotFound) {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	fresh := &model.QuotaDay{
		Date:          date,
		TotalCapacity: defaultCapacity,
		Reserved:      0,
		IsOpen:        true,
		Version:       0,
		UpdatedAt:     time.Now().UTC().Truncate(time.Millisecond),
	}

	_, err = r.collection.InsertOne(ctx, fresh)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return r.Get(ctx, date)
		}
		return nil, fmt.Errorf("failed to create quota day: %w", err)
	}

	return fresh, nil
}

func (r *mongoQuotaRepository) IncrementReserved(ctx context.Context, date string, expectedVersion int64, count int) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":     date,
		"version": expectedVersion,
	}
	update := bson.M{
		"$inc": bson.M{
			"reserved": count,
			"version":  1,
		},
		"$set": bson.M{
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to increment reserved count: %w", err)
	}

	if result.MatchedCount == 0 {
		return quotaerrors.ErrVersionConflict
	}

	return nil
}

// DecrementReservedFloored releases seats without a version precondition:
// releasing can never violate the capacity invariant, so it only needs the
// floor at zero, expressed server-side as a pipeline update.
func (r *mongoQuotaRepository) DecrementReservedFloored(ctx context.Context, date string, count int) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"reserved": bson.M{
				"$max": bson.A{0, bson.M{"$subtract": bson.A{"$reserved", count}}},
			},
			"version":    bson.M{"$add": bson.A{"$version", 1}},
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		}}},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": date}, update)
	if err != nil {
		return fmt.Errorf("failed to decrement reserved count: %w", err)
	}

	if result.MatchedCount == 0 {
		return quotaerrors.ErrNotFound
	}

	return nil
}

// SetCapacity applies an admin edit. The filter carries both the version
// precondition and the capacity invariant (reserved <= new total); a zero
// match is disambiguated by the caller via a re-read.
func (r *mongoQuotaRepository) SetCapacity(ctx context.Context, date string, expectedVersion int64, totalCapacity int, isOpen bool) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":      date,
		"version":  expectedVersion,
		"reserved": bson.M{"$lte": totalCapacity},
	}
	update := bson.M{
		"$set": bson.M{
			"total_capacity": totalCapacity,
			"is_open":        isOpen,
			"updated_at":     time.Now().UTC().Truncate(time.Millisecond),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update quota day: %w", err)
	}

	if result.MatchedCount == 0 {
		return quotaerrors.ErrVersionConflict
	}

	return nil
}

func (r *mongoQuotaRepository) FindRange(ctx context.Context, from, to string) ([]*model.QuotaDay, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"_id": bson.M{"$gte": from, "$lte": to}}
	opts := optionsFindSortedByDate()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find quota days: %w", err)
	}
	defer cursor.Close(ctx)

	var days []*model.QuotaDay
	if err = cursor.All(ctx, &days); err != nil {
		return nil, fmt.Errorf("failed to decode quota days: %w", err)
	}

	return days, nil
}
