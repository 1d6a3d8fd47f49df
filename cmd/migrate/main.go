package main

import (
	"context"
	"time"

	mongoMigration "roomly/internal/migrations/mongo"
	"roomly/pkg/config"

	"go.mongodb.org/mongo-driver/bson"
)

const JobName = "mongo-migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	// Booking writes run in multi-document transactions, which a standalone
	// mongod rejects at the first request.
	var hello struct {
		SetName string `bson:"setName"`
	}
	if err := cfg.Client.Mongo.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		cfg.Log.Fatal("Failed to query server topology", "error", err)
	}
	if hello.SetName == "" {
		cfg.Log.Warn("MongoDB is not a replica set member; booking transactions will fail")
	}

	collections := mongoMigration.Collections()
	cfg.Log.Info("Starting Mongo migration job",
		"database", cfg.MongoDatabaseName,
		"replica_set", hello.SetName,
		"collections", len(collections),
	)

	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	if err := mongoMigration.RunMigration(ctx, db, cfg.Log); err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}
	cfg.Log.Info("Migration completed successfully")
}
