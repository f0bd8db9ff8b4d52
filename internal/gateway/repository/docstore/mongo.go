package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// MongoDB stores each collection as a MongoDB collection with a unique index
// on its natural key.
type MongoDB struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongo(ctx context.Context, cfg MongoConfig) (*MongoDB, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	database := strings.TrimSpace(cfg.Database)
	if database == "" {
		return nil, fmt.Errorf("mongo database is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoDB{client: client, db: client.Database(database)}, nil
}

func (m *MongoDB) Collection(ctx context.Context, name, keyField string) (Collection, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("store is nil")
	}
	name = strings.TrimSpace(name)
	keyField = strings.TrimSpace(keyField)
	if name == "" || keyField == "" {
		return nil, fmt.Errorf("collection name and key field are required")
	}
	coll := m.db.Collection(name)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: keyField, Value: 1}},
		Options: options.Index().SetUnique(true).SetName(keyField + "_unique"),
	})
	if err != nil {
		return nil, fmt.Errorf("ensure index on %s.%s: %w", name, keyField, err)
	}
	return &mongoCollection{coll: coll, name: name, keyField: keyField}, nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}

type mongoCollection struct {
	coll     *mongo.Collection
	name     string
	keyField string
}

func (c *mongoCollection) Name() string     { return c.name }
func (c *mongoCollection) KeyField() string { return c.keyField }

func (c *mongoCollection) FindOne(ctx context.Context, filter Filter, out any) error {
	err := c.coll.FindOne(ctx, bsonFilter(filter)).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (c *mongoCollection) InsertOne(ctx context.Context, doc any) error {
	_, err := c.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, c.name)
	}
	return err
}

func (c *mongoCollection) FindOneAndUpdate(ctx context.Context, filter Filter, update Update, out any) error {
	if touchesKey(c.keyField, update) {
		return ErrImmutableKey
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := c.coll.FindOneAndUpdate(ctx, bsonFilter(filter), bsonUpdate(update), opts).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (c *mongoCollection) DeleteOne(ctx context.Context, filter Filter) error {
	res, err := c.coll.DeleteOne(ctx, bsonFilter(filter))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *mongoCollection) Find(ctx context.Context, filter Filter, out any) error {
	cur, err := c.coll.Find(ctx, bsonFilter(filter), options.Find().SetSort(bson.D{{Key: c.keyField, Value: 1}}))
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	return cur.All(ctx, out)
}

func bsonFilter(f Filter) bson.M {
	out := bson.M{}
	for k, v := range f {
		out[k] = v
	}
	return out
}

func bsonUpdate(u Update) bson.M {
	out := bson.M{}
	if len(u.Set) > 0 {
		out["$set"] = bson.M(u.Set)
	}
	if len(u.AddToSet) > 0 {
		out["$addToSet"] = bson.M(u.AddToSet)
	}
	if len(u.Pull) > 0 {
		out["$pull"] = bson.M(u.Pull)
	}
	return out
}
