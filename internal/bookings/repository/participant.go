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

const ParticipantCollectionName = "Booking_participants"

type ParticipantRepository interface {
	// Add links a user to a booking. Adding an existing (booking, user) pair
	// is a no-op and keeps the stored team tag; inserted reports which case ran.
	Add(ctx context.Context, participant *model.Participant) (inserted bool, err error)
	FindByBooking(ctx context.Context, bookingID string) ([]model.Participant, error)
	FindBookingIDsByUser(ctx context.Context, userID string) ([]string, error)
	RemoveUsers(ctx context.Context, bookingID string, userIDs []string) (int64, error)
	DeleteByBooking(ctx context.Context, bookingID string) (int64, error)
}

type mongoParticipantRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewParticipantRepository(cfg *config.Config) ParticipantRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoParticipantRepository{
		cfg:        cfg,
		collection: db.Collection(ParticipantCollectionName),
	}
}

func (r *mongoParticipantRepository) Add(ctx context.Context, participant *model.Participant) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	participant.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	onInsert := bson.M{"created_at": participant.CreatedAt}
	if participant.TeamID != nil {
		onInsert["team_id"] = *participant.TeamID
	}

	filter := bson.M{"booking_id": participant.BookingID, "user_id": participant.UserID}
	result, err := r.collection.UpdateOne(ctx, filter,
		bson.M{"$setOnInsert": onInsert},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("failed to add participant %s to booking %s: %w", participant.UserID, participant.BookingID, err)
	}
	return result.UpsertedCount > 0, nil
}

func (r *mongoParticipantRepository) FindByBooking(ctx context.Context, bookingID string) ([]model.Participant, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"booking_id": bookingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find participants: %w", err)
	}
	defer cursor.Close(ctx)

	participants := []model.Participant{}
	if err := cursor.All(ctx, &participants); err != nil {
		return nil, fmt.Errorf("failed to decode participants: %w", err)
	}
	return participants, nil
}

func (r *mongoParticipantRepository) FindBookingIDsByUser(ctx context.Context, userID string) ([]string, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	values, err := r.collection.Distinct(ctx, "booking_id", bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings of user %s: %w", userID, err)
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *mongoParticipantRepository) RemoveUsers(ctx context.Context, bookingID string, userIDs []string) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{
		"booking_id": bookingID,
		"user_id":    bson.M{"$in": userIDs},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to remove participants from booking %s: %w", bookingID, err)
	}
	return result.DeletedCount, nil
}

func (r *mongoParticipantRepository) DeleteByBooking(ctx context.Context, bookingID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"booking_id": bookingID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete participants of booking %s: %w", bookingID, err)
	}
	return result.DeletedCount, nil
}
