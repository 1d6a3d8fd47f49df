package validators

import "go.mongodb.org/mongo-driver/bson"

var NotificationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"user_id", "booking_id", "kind", "message", "created_at"},
		"additionalProperties": true,

		"properties": bson.M{
			"user_id":    objectIDString,
			"booking_id": objectIDString,
			"kind": bson.M{
				"bsonType": "string",
				"enum":     []string{"created", "added", "updated", "removed", "cancelled"},
			},
			"message":      bson.M{"bsonType": "string"},
			"created_at":   bson.M{"bsonType": "date"},
			"read_at":      bson.M{"bsonType": "date"},
			"delivered_at": bson.M{"bsonType": "date"},
		},
	},
}
