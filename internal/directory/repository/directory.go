// Package repository reads the room, user and team directory the booking
// core depends on. Lookups always go to the store; nothing is cached.
package repository

import (
	"context"
	"errors"
	"fmt"

	"roomly/pkg/config"
	mongotx "roomly/pkg/db/mongo"
	"roomly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	RoomCollectionName       = "Rooms"
	UserCollectionName       = "Users"
	TeamCollectionName       = "Teams"
	TeamMemberCollectionName = "Team_members"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrUserNotFound = errors.New("user not found")
)

type RoomRepository interface {
	FindByID(ctx context.Context, id string) (*model.Room, error)
}

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type TeamRepository interface {
	// FindMembersInBranch returns the members of teamIDs whose user belongs to
	// branch, ordered by team as given and then by membership insertion.
	FindMembersInBranch(ctx context.Context, teamIDs []string, branch string) ([]model.Member, error)
}

type mongoRoomRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewRoomRepository(cfg *config.Config) RoomRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRoomRepository{cfg: cfg, collection: db.Collection(RoomCollectionName)}
}

func (r *mongoRoomRepository) FindByID(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	if err := findByID(ctx, r.collection, r.cfg, id, &room); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
		}
		return nil, fmt.Errorf("failed to find room: %w", err)
	}
	return &room, nil
}

type mongoUserRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewUserRepository(cfg *config.Config) UserRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoUserRepository{cfg: cfg, collection: db.Collection(UserCollectionName)}
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := findByID(ctx, r.collection, r.cfg, id, &user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

type mongoTeamRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewTeamRepository(cfg *config.Config) TeamRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTeamRepository{cfg: cfg, collection: db.Collection(TeamMemberCollectionName)}
}

func (r *mongoTeamRepository) FindMembersInBranch(ctx context.Context, teamIDs []string, branch string) ([]model.Member, error) {
	if len(teamIDs) == 0 {
		return []model.Member{}, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	// user_id is stored as hex, Users._id as ObjectID
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"team_id": bson.M{"$in": teamIDs}}}},
		{{Key: "$addFields", Value: bson.M{
			"team_rank": bson.M{"$indexOfArray": bson.A{teamIDs, "$team_id"}},
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from": UserCollectionName,
			"let":  bson.M{"uid": bson.M{"$toObjectId": "$user_id"}},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$_id", "$$uid"}},
					bson.M{"$eq": bson.A{"$branch", branch}},
				}}}},
				bson.M{"$project": bson.M{"_id": 1}},
			},
			"as": "user",
		}}},
		{{Key: "$match", Value: bson.M{"user.0": bson.M{"$exists": true}}}},
		{{Key: "$sort", Value: bson.D{{Key: "team_rank", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$project", Value: bson.M{"_id": 0, "user_id": 1, "team_id": 1}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve team members: %w", err)
	}
	defer cursor.Close(ctx)

	members := []model.Member{}
	if err := cursor.All(ctx, &members); err != nil {
		return nil, fmt.Errorf("failed to decode team members: %w", err)
	}
	return members, nil
}

func findByID(ctx context.Context, collection *mongo.Collection, cfg *config.Config, id string, out any) error {
	ctx, cancel := mongotx.WithTimeout(ctx, cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return mongo.ErrNoDocuments
	}
	return collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(out)
}
