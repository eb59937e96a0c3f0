package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/depfuse/depfuse/pkg/analyzer"
)

// MongoStore persists runs in a MongoDB collection, one document per run.
type MongoStore struct {
	client *mongo.Client
	runs   *mongo.Collection
}

// MongoConfig holds connection settings for the run store.
type MongoConfig struct {
	URI        string // defaults to "mongodb://localhost:27017"
	Database   string // defaults to "depfuse"
	Collection string // defaults to "runs"
}

// NewMongoStore connects to MongoDB and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "depfuse"
	}
	if cfg.Collection == "" {
		cfg.Collection = "runs"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb %s: %w", cfg.URI, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb %s: %w", cfg.URI, err)
	}

	return &MongoStore{
		client: client,
		runs:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Save persists a run, overwriting any run with the same ID.
func (s *MongoStore) Save(ctx context.Context, run *analyzer.Run) error {
	_, err := s.runs.ReplaceOne(ctx,
		bson.M{"_id": run.ID},
		run,
		options.Replace().SetUpsert(true),
	)
	return err
}

// Get retrieves a run by ID.
func (s *MongoStore) Get(ctx context.Context, id string) (*analyzer.Run, error) {
	var run analyzer.Run
	err := s.runs.FindOne(ctx, bson.M{"_id": id}).Decode(&run)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns summaries of all runs, newest first.
func (s *MongoStore) List(ctx context.Context) ([]RunSummary, error) {
	proj := bson.M{
		"_id":         1,
		"root_dir":    1,
		"started_at":  1,
		"finished_at": 1,
		"projects":    bson.M{"$size": bson.M{"$ifNull": bson.A{"$projects", bson.A{}}}},
	}
	cursor, err := s.runs.Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$project", Value: proj}},
		bson.D{{Key: "$sort", Value: bson.M{"started_at": -1}}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []RunSummary
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a run.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	_, err := s.runs.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
