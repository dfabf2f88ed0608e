package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvBookingWindowDays    = "BOOKING_WINDOW_DAYS"
	EnvDefaultDailyCapacity = "DEFAULT_DAILY_CAPACITY"
	EnvMaxPartySize         = "MAX_PARTY_SIZE"
	EnvTicketPriceIDR       = "TICKET_PRICE_IDR"
	EnvRequireCompleteLeader = "REQUIRE_COMPLETE_LEADER"
	EnvPaymentDeadline      = "PAYMENT_DEADLINE"
	EnvExpirySweepInterval  = "EXPIRY_SWEEP_INTERVAL"

	EnvKafkaBrokers       = "KAFKA_BROKERS"
	EnvKafkaBookingsTopic = "KAFKA_BOOKINGS_TOPIC"
	EnvKafkaDLQTopic      = "KAFKA_DLQ_TOPIC"
)
