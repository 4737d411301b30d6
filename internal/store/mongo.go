package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/zero-wait/platform/internal/shared/config"
	"github.com/zero-wait/platform/internal/shared/errors"
)

// Mongo stores each collection as a Mongo collection, matching the hosted
// document store the original product delegated to. The document id doubles
// as _id so duplicate creates fail at the provider.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ Store = (*Mongo)(nil)

// NewMongo connects to Mongo and returns the store.
func NewMongo(ctx context.Context, cfg config.MongoConfig) (*Mongo, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &Mongo{client: client, db: client.Database(cfg.Database)}, nil
}

func (m *Mongo) Create(ctx context.Context, collection string, doc Document) (string, error) {
	doc, id := prepare(doc, time.Now())

	insert := bson.M{"_id": id}
	for k, v := range doc {
		insert[k] = v
	}

	if _, err := m.db.Collection(collection).InsertOne(ctx, insert); err != nil {
		return "", errors.Wrap(err, fmt.Sprintf("failed to create %s document", collection))
	}

	return id, nil
}

func (m *Mongo) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw bson.M
	err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return nil, errors.NotFound(collection, id)
	}
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("failed to get %s document", collection))
	}

	return fromBSON(raw), nil
}

func (m *Mongo) Query(ctx context.Context, q Query) ([]Document, error) {
	filter := bson.M{}
	if q.Field != "" {
		filter[q.Field] = q.Value
	}

	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Descending {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := m.db.Collection(q.Collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("failed to query %s", q.Collection))
	}
	defer cursor.Close(ctx)

	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("failed to read %s cursor", q.Collection))
	}

	docs := make([]Document, 0, len(raws))
	for _, raw := range raws {
		docs = append(docs, fromBSON(raw))
	}
	return docs, nil
}

func (m *Mongo) Update(ctx context.Context, collection, id string, fields Document) error {
	fields = stampUpdate(fields, time.Now())

	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}

	result, err := m.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
	)
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to update %s document", collection))
	}
	if result.MatchedCount == 0 {
		return errors.NotFound(collection, id)
	}
	return nil
}

func (m *Mongo) Delete(ctx context.Context, collection, id string) error {
	result, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to delete %s document", collection))
	}
	if result.DeletedCount == 0 {
		return errors.NotFound(collection, id)
	}
	return nil
}

func (m *Mongo) Health(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func fromBSON(raw bson.M) Document {
	doc := make(Document, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		doc[k] = v
	}
	return doc
}
