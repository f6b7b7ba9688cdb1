// Package store provides persistence backends for call records.
//
// This file implements the MongoDB-backed store.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/voxloop/voxloop/internal/models"
)

const (
	// DefaultMongoDatabase is used when no database name is configured.
	DefaultMongoDatabase = "voxloop"
	mongoCollection      = "call_records"
	mongoConnectTimeout  = 10 * time.Second
)

// MongoStore persists call records in MongoDB.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to MongoDB using the DSN as connection URI.
func NewMongoStore(opts ...Option) (*MongoStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("MongoStore URI not set")
		return nil, fmt.Errorf("mongo URI not set")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultMongoDatabase
	}

	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DSN))
	if err != nil {
		slog.Error("MongoStore failed to connect", "error", err)
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		slog.Error("MongoStore ping failed", "error", err)
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}

	slog.Debug("MongoStore initialized", "database", cfg.Database)
	return &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(mongoCollection),
	}, nil
}

// SaveCallRecord upserts the record for its session ID.
func (s *MongoStore) SaveCallRecord(ctx context.Context, rec models.CallRecord) error {
	filter := bson.M{"sessionid": rec.SessionID}
	_, err := s.coll.ReplaceOne(ctx, filter, rec, options.Replace().SetUpsert(true))
	if err != nil {
		slog.Error("MongoStore.SaveCallRecord failed", "error", err, "sessionID", rec.SessionID)
		return fmt.Errorf("failed to save call record %s: %w", rec.SessionID, err)
	}
	slog.Debug("MongoStore.SaveCallRecord succeeded", "sessionID", rec.SessionID, "status", rec.Status)
	return nil
}

// GetCallRecord returns the record for a session ID, or nil when absent.
func (s *MongoStore) GetCallRecord(ctx context.Context, sessionID string) (*models.CallRecord, error) {
	var rec models.CallRecord
	err := s.coll.FindOne(ctx, bson.M{"sessionid": sessionID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		slog.Error("MongoStore.GetCallRecord failed", "error", err, "sessionID", sessionID)
		return nil, err
	}
	return &rec, nil
}

// ListCallRecords returns records newest first, up to limit (0 = all).
func (s *MongoStore) ListCallRecords(ctx context.Context, limit int) ([]models.CallRecord, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "createdat", Value: -1}})
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}
	cursor, err := s.coll.Find(ctx, bson.M{}, findOpts)
	if err != nil {
		slog.Error("MongoStore.ListCallRecords query failed", "error", err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.CallRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Close disconnects the Mongo client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
