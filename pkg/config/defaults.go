package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017/?replicaSet=rs0"
	DefaultMongoDatabaseName = "roomly"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultBookingLocalOffset = "+00:00"
	DefaultMaxParticipants    = 200
	DefaultMaxTitleLength     = 200

	DefaultRedisDB           = 0
	DefaultBookingLockExpiry = 10 * time.Second
	DefaultBookingLockTries  = 32

	DefaultCORSAllowedOrigins = "*"

	DefaultKafkaEnabled               = false
	DefaultNotificationPublishTimeout = 5 * time.Second

	DefaultPageSize        = 10
	DefaultPaginationLimit = 100
)
