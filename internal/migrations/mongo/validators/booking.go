package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"user_id",
			"booking_date",
			"party_size",
			"members",
			"status",
			"total_price_idr",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			// The reservation code, SRL-<year>-<suffix>.
			"_id": bson.M{
				"bsonType": "string",
				"pattern":  `^SRL-\d{4}-[0-9A-Z]{4}$`,
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"booking_date": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"party_size": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  50,
			},

			"members": bson.M{
				"bsonType": "array",
				"minItems": 1,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"full_name", "national_id", "is_leader"},
					"properties": bson.M{
						"full_name": bson.M{
							"bsonType":  "string",
							"minLength": 2,
							"maxLength": 100,
						},
						"national_id": bson.M{
							"bsonType": "string",
							"pattern":  `^\d{16}$`,
						},
						"is_leader": bson.M{
							"bsonType": "bool",
						},
					},
				},
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending_payment",
					"awaiting_verification",
					"confirmed",
					"rejected",
					"cancelled",
				},
			},

			"total_price_idr": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
