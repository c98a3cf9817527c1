package usagelog

import (
	"context"
	"fmt"
	"time"

	"license-relay-proxy/internal/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const BackendMongo = "mongo"

type usageLogDocument struct {
	ID            string    `bson:"_id"`
	LicenseKey    string    `bson:"license_key"`
	ProjectID     string    `bson:"project_id"`
	MessageLength int       `bson:"message_length"`
	CreatedAt     time.Time `bson:"created_at"`
}

// MongoWriter stores usage entries in a MongoDB collection.
type MongoWriter struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ Writer = (*MongoWriter)(nil)

// NewMongoWriter connects to uri and ensures the license_key/created_at index.
func NewMongoWriter(ctx context.Context, uri, database, collection string) (*MongoWriter, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("usagelog: connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("usagelog: ping mongo: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "license_key", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("usagelog: create index: %w", err)
	}

	return &MongoWriter{client: client, coll: coll}, nil
}

func (w *MongoWriter) Backend() string { return BackendMongo }

func (w *MongoWriter) Append(ctx context.Context, entry *model.UsageLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	doc := usageLogDocument{
		ID:            uuid.NewString(),
		LicenseKey:    entry.LicenseKey,
		ProjectID:     entry.ProjectID,
		MessageLength: entry.MessageLength,
		CreatedAt:     entry.CreatedAt.UTC(),
	}
	if _, err := w.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("usagelog: insert mongo: %w", err)
	}
	return nil
}

func (w *MongoWriter) Close(ctx context.Context) error {
	return w.client.Disconnect(ctx)
}
