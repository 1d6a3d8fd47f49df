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

	EnvBookingLocalOffset = "BOOKING_LOCAL_OFFSET"
	EnvMaxParticipants    = "MAX_PARTICIPANTS"
	EnvMaxTitleLength     = "MAX_TITLE_LENGTH"

	EnvRedisAddr         = "REDIS_ADDR"
	EnvRedisPassword     = "REDIS_PASSWORD"
	EnvRedisDB           = "REDIS_DB"
	EnvBookingLockExpiry = "BOOKING_LOCK_EXPIRY"
	EnvBookingLockTries  = "BOOKING_LOCK_TRIES"

	EnvJWTSecret          = "JWT_SECRET"
	EnvCORSAllowedOrigins = "CORS_ALLOWED_ORIGINS"

	EnvKafkaEnabled               = "KAFKA_ENABLED"
	EnvNotificationPublishTimeout = "NOTIFICATION_PUBLISH_TIMEOUT"
)
