package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore serves collections from one MongoDB database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{client: client, db: client.Database(database)}
}

func (s *MongoStore) Collection(name string, _ ...CollectionOption) Collection {
	return &MongoCollection{coll: s.db.Collection(name)}
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type MongoCollection struct {
	coll *mongo.Collection
}

func (c *MongoCollection) InsertOne(ctx context.Context, doc any) (string, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("docstore: encode document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return "", fmt.Errorf("docstore: decode document: %w", err)
	}
	id, _ := m[IDField].(string)
	if id == "" {
		id = uuid.NewString()
		m[IDField] = id
	}
	if _, err := c.coll.InsertOne(ctx, m); err != nil {
		return "", mongoErr(err)
	}
	return id, nil
}

func (c *MongoCollection) FindOne(ctx context.Context, filter Filter, dst any) error {
	return mongoErr(c.coll.FindOne(ctx, bsonFilter(filter)).Decode(dst))
}

func (c *MongoCollection) Find(ctx context.Context, filter Filter, opts FindOptions, dst any) error {
	fo := options.Find()
	if opts.Skip > 0 {
		fo.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}
	if len(opts.Sort) > 0 {
		fo.SetSort(bsonKeys(opts.Sort))
	}
	cur, err := c.coll.Find(ctx, bsonFilter(filter), fo)
	if err != nil {
		return mongoErr(err)
	}
	return mongoErr(cur.All(ctx, dst))
}

func (c *MongoCollection) UpdateOne(ctx context.Context, filter Filter, set Document, dst any) error {
	update := bson.M{"$set": bson.M(set)}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	res := c.coll.FindOneAndUpdate(ctx, bsonFilter(filter), update, opts)
	if dst == nil {
		return mongoErr(res.Err())
	}
	return mongoErr(res.Decode(dst))
}

func (c *MongoCollection) DeleteOne(ctx context.Context, filter Filter) error {
	res, err := c.coll.DeleteOne(ctx, bsonFilter(filter))
	if err != nil {
		return mongoErr(err)
	}
	if res.DeletedCount == 0 {
		return ErrNoDocuments
	}
	return nil
}

func (c *MongoCollection) Count(ctx context.Context, filter Filter) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, bsonFilter(filter))
	return n, mongoErr(err)
}

func (c *MongoCollection) GroupCount(ctx context.Context, filter Filter, field string) ([]GroupCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bsonFilter(filter)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + field},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cur, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, mongoErr(err)
	}
	var out []GroupCount
	if err := cur.All(ctx, &out); err != nil {
		return nil, mongoErr(err)
	}
	return out, nil
}

func (c *MongoCollection) EnsureIndex(ctx context.Context, spec IndexSpec) error {
	model := mongo.IndexModel{
		Keys:    bsonKeys(spec.Keys),
		Options: options.Index().SetName(spec.Name).SetUnique(spec.Unique),
	}
	if _, err := c.coll.Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("create index %s: %w", spec.Name, mongoErr(err))
	}
	return nil
}

func bsonFilter(f Filter) bson.M {
	if f == nil {
		return bson.M{}
	}
	return bson.M(f)
}

func bsonKeys(fields []SortField) bson.D {
	d := make(bson.D, 0, len(fields))
	for _, f := range fields {
		order := 1
		if f.Order == Descending {
			order = -1
		}
		d = append(d, bson.E{Key: f.Field, Value: order})
	}
	return d
}

func mongoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNoDocuments
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}
