package validators

import "go.mongodb.org/mongo-driver/bson"

// objectIDString is a 24 character hex id stored as a string reference.
var objectIDString = bson.M{
	"bsonType": "string",
	"pattern":  "^[0-9a-f]{24}$",
}

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"resource_id",
			"resource_name",
			"title",
			"organizer_id",
			"start_time",
			"end_time",
			"created_at",
			"updated_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id":          bson.M{"bsonType": "objectId"},
			"resource_id":  objectIDString,
			"organizer_id": objectIDString,

			"resource_name": bson.M{
				"bsonType":  "string",
				"maxLength": 200,
			},

			"title": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 200,
			},

			"start_time": bson.M{"bsonType": "date"},
			"end_time":   bson.M{"bsonType": "date"},
			"created_at": bson.M{"bsonType": "date"},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
	// start < end cannot be expressed in $jsonSchema.
	"$expr": bson.M{"$lt": bson.A{"$start_time", "$end_time"}},
}

var ParticipantValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"booking_id", "user_id", "created_at"},
		"additionalProperties": true,

		"properties": bson.M{
			"booking_id": objectIDString,
			"user_id":    objectIDString,
			"team_id":    objectIDString,
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}

var ChangeValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"booking_id", "action", "created_at"},
		"additionalProperties": true,

		"properties": bson.M{
			"booking_id": objectIDString,
			"actor_id":   objectIDString,
			"action": bson.M{
				"bsonType": "string",
				"enum":     []string{"updated", "deleted"},
			},
			"before":     bson.M{"bsonType": "object"},
			"after":      bson.M{"bsonType": "object"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}

var GuardValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"version"},
		"additionalProperties": true,

		"properties": bson.M{
			"_id":        objectIDString,
			"version":    bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}
