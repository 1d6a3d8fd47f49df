package validators

import "go.mongodb.org/mongo-driver/bson"

var branch = bson.M{
	"bsonType":  "string",
	"minLength": 1,
	"maxLength": 100,
}

var RoomValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"name", "branch"},
		"additionalProperties": true,

		"properties": bson.M{
			"name":     bson.M{"bsonType": "string", "minLength": 1, "maxLength": 200},
			"capacity": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
			"branch":   branch,
		},
	},
}

var UserValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"name", "branch"},
		"additionalProperties": true,

		"properties": bson.M{
			"name":   bson.M{"bsonType": "string", "minLength": 1, "maxLength": 200},
			"email":  bson.M{"bsonType": "string", "maxLength": 320},
			"branch": branch,
		},
	},
}

var TeamValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"name"},
		"additionalProperties": true,

		"properties": bson.M{
			"name":   bson.M{"bsonType": "string", "minLength": 1, "maxLength": 200},
			"branch": branch,
		},
	},
}

var TeamMemberValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"team_id", "user_id"},
		"additionalProperties": true,

		"properties": bson.M{
			"team_id": objectIDString,
			"user_id": objectIDString,
		},
	},
}
