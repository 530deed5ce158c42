package state

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mlorenz/drawbridge/pkg/errors"
)

// MongoOptions configures the shared-state backend.
type MongoOptions struct {
	// URI is the connection string, e.g. "mongodb://localhost:27017".
	URI string
	// Database defaults to "drawbridge".
	Database string
	// Collection defaults to "diagrams".
	Collection string
}

// MongoStore keeps sync records in a MongoDB collection so several
// people publishing from the same repository see each other's state.
// Records are keyed by the workspace-relative diagram path.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects and verifies the server is reachable.
func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	if opts.URI == "" {
		return nil, errors.New(errors.ErrCodeNotConfigured, "mongo URI is not set")
	}
	if opts.Database == "" {
		opts.Database = "drawbridge"
	}
	if opts.Collection == "" {
		opts.Collection = "diagrams"
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connecting to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "pinging mongodb")
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(opts.Database).Collection(opts.Collection),
	}, nil
}

func (s *MongoStore) Get(ctx context.Context, localPath string) (*Record, error) {
	var rec Record
	err := s.coll.FindOne(ctx, bson.M{"_id": NormalizePath(localPath)}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "reading sync record")
	}
	return &rec, nil
}

func (s *MongoStore) Put(ctx context.Context, rec *Record) error {
	if rec.LocalPath == "" {
		return errors.New(errors.ErrCodeInvalidInput, "record has no local path")
	}
	rec.LocalPath = NormalizePath(rec.LocalPath)
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": rec.LocalPath}, rec,
		options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "writing sync record")
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, localPath string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": NormalizePath(localPath)})
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "deleting sync record")
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context) ([]*Record, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "listing sync records")
	}
	var recs []*Record
	if err := cur.All(ctx, &recs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "decoding sync records")
	}
	return recs, nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}
