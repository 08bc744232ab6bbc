package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/metricgraph/pkg/graph"
)

// MongoConfig holds the MongoDB connection configuration.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// DefaultMongoConfig returns the default MongoDB configuration.
func DefaultMongoConfig() MongoConfig {
	return MongoConfig{
		URI:        "mongodb://localhost:27017",
		Database:   "metricgraph",
		Collection: "projects",
	}
}

// MongoBackend stores each project as one document whose _id is the
// project ID.
type MongoBackend struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoBackend connects to MongoDB and verifies the connection.
func NewMongoBackend(ctx context.Context, cfg MongoConfig) (*MongoBackend, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultMongoConfig().Collection
	}
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(5*time.Second).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	err = retry(ctx, func() error {
		if err := client.Ping(ctx, nil); err != nil {
			return transient(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoBackend{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Name implements Backend.
func (b *MongoBackend) Name() string { return "mongo" }

// Get implements Backend.
func (b *MongoBackend) Get(ctx context.Context, projectID string) (*graph.Snapshot, error) {
	var s graph.Snapshot
	err := b.coll.FindOne(ctx, bson.M{"_id": projectID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find project: %w", err)
	}
	return &s, nil
}

// Put implements Backend.
func (b *MongoBackend) Put(ctx context.Context, s *graph.Snapshot) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := b.coll.ReplaceOne(ctx, bson.M{"_id": s.ProjectID}, s, opts); err != nil {
		return fmt.Errorf("replace project: %w", err)
	}
	return nil
}

// Remove implements Backend.
func (b *MongoBackend) Remove(ctx context.Context, projectID string) error {
	if _, err := b.coll.DeleteOne(ctx, bson.M{"_id": projectID}); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// Keys implements Backend.
func (b *MongoBackend) Keys(ctx context.Context) ([]string, error) {
	ids, err := b.coll.Distinct(ctx, "_id", bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if s, ok := id.(string); ok {
			keys = append(keys, s)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Close disconnects the client.
func (b *MongoBackend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.client.Disconnect(ctx)
}

var _ Backend = (*MongoBackend)(nil)
