package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements ports.DocumentStore on MongoDB. Records carry
// their own id when they have one; otherwise the store assigns one.
type MongoStore struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, uri string, databaseName string) (*MongoStore, error) {
	clientOptions := options.Client().ApplyURI(uri).SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &MongoStore{
		client:   client,
		database: client.Database(databaseName),
	}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Save upserts a record by its _id, assigning one when missing, and
// returns the id it ended up under.
func (s *MongoStore) Save(ctx context.Context, collection string, record any) (string, error) {
	doc, err := toDocument(record)
	if err != nil {
		return "", err
	}

	id, _ := doc["_id"].(string)
	if id == "" {
		id = uuid.NewString()
		doc["_id"] = id
	}

	filter := bson.M{"_id": id}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	if _, err := s.database.Collection(collection).UpdateOne(ctx, filter, update, opts); err != nil {
		return "", fmt.Errorf("failed to save document in %q: %w", collection, err)
	}
	return id, nil
}

func (s *MongoStore) Get(ctx context.Context, collection string, id string, out any) error {
	err := s.database.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("document %q not found in %q: %w", id, collection, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load document %q from %q: %w", id, collection, err)
	}
	return nil
}

// toDocument round-trips the record through bson so the store can read
// and assign its _id without knowing the concrete type.
func toDocument(record any) (bson.M, error) {
	raw, err := bson.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}
