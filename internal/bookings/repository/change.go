package repository

import (
	"context"
	"fmt"
	"time"

	"roomly/pkg/config"
	mongotx "roomly/pkg/db/mongo"
	"roomly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ChangeCollectionName = "Booking_changes"

// ChangeRepository appends audit entries. Entries are never updated.
type ChangeRepository interface {
	Append(ctx context.Context, change *model.BookingChange) error
	FindByBooking(ctx context.Context, bookingID string) ([]model.BookingChange, error)
}

type mongoChangeRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewChangeRepository(cfg *config.Config) ChangeRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoChangeRepository{
		cfg:        cfg,
		collection: db.Collection(ChangeCollectionName),
	}
}

func (r *mongoChangeRepository) Append(ctx context.Context, change *model.BookingChange) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	change.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, change)
	if err != nil {
		return fmt.Errorf("failed to record %s change for booking %s: %w", change.Action, change.BookingID, err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		change.ID = oid.Hex()
	}
	return nil
}

func (r *mongoChangeRepository) FindByBooking(ctx context.Context, bookingID string) ([]model.BookingChange, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"booking_id": bookingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find changes: %w", err)
	}
	defer cursor.Close(ctx)

	changes := []model.BookingChange{}
	if err := cursor.All(ctx, &changes); err != nil {
		return nil, fmt.Errorf("failed to decode changes: %w", err)
	}
	return changes, nil
}
