package validators

import "go.mongodb.org/mongo-driver/bson"

var QuotaDayValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"total_capacity",
			"reserved",
			"is_open",
			"version",
			"updated_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			// The calendar day itself, YYYY-MM-DD.
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 10,
				"maxLength": 10,
				"pattern":   `^\d{4}-\d{2}-\d{2}$`,
			},

			"total_capacity": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  10000,
			},

			"reserved": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},

			"is_open": bson.M{
				"bsonType": "bool",
			},

			"version": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
