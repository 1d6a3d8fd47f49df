package repository

import (
	"context"
	"fmt"
	"time"

	"roomly/pkg/config"
	mongotx "roomly/pkg/db/mongo"
	"roomly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const GuardCollectionName = "Booking_locks"

// GuardRepository serializes booking writes per resource. Guard must be called
// inside a transaction, before the overlap query.
type GuardRepository interface {
	Guard(ctx context.Context, resourceID string) (*model.ResourceGuard, error)
}

type mongoGuardRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewGuardRepository(cfg *config.Config) GuardRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoGuardRepository{
		cfg:        cfg,
		collection: db.Collection(GuardCollectionName),
	}
}

// Guard bumps the resource's version. The write holds the document lock until
// the transaction ends, so a concurrent writer on the same resource gets a
// write conflict and is retried against the committed state.
func (r *mongoGuardRepository) Guard(ctx context.Context, resourceID string) (*model.ResourceGuard, error) {
	if !mongotx.InTransaction(ctx) {
		return nil, fmt.Errorf("resource guard for %s requires a transaction", resourceID)
	}

	update := bson.M{
		"$inc": bson.M{"version": 1},
		"$set": bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var guard model.ResourceGuard
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": resourceID}, update, opts).Decode(&guard)
	if err != nil {
		return nil, fmt.Errorf("failed to guard resource %s: %w", resourceID, err)
	}
	return &guard, nil
}
