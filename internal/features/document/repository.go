package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-paystack-sync/internal/config"
	"go-paystack-sync/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
)

// Store is the narrow CRUD contract the sync engine relies on. Filters are equality
// matches; keys may be dotted paths into nested fields.
type Store interface {
	Find(ctx context.Context, collection string, filter map[string]any, limit int64) ([]Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	Create(ctx context.Context, collection string, data Document) (Document, error)
	Update(ctx context.Context, collection, id string, data Document) (Document, error)
	Delete(ctx context.Context, collection, id string) error
	Count(ctx context.Context, collection string, filter map[string]any) (int64, error)
}

// NewStore picks the backend named by STORE_DRIVER.
func NewStore(lc fx.Lifecycle, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case "mongodb", "":
		db, err := database.NewDatabase(lc, cfg)
		if err != nil {
			return nil, err
		}
		return NewMongoStore(db), nil
	case "postgres":
		db, err := database.NewPostgres(lc, cfg)
		if err != nil {
			return nil, err
		}
		store := NewPostgresStore(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported store driver %q", config.ErrInvalidConfig, cfg.StoreDriver)
	}
}

// MongoStore keeps each collection in its own Mongo collection.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(mongodb *database.MongodbDB) *MongoStore {
	return &MongoStore{db: mongodb.DB}
}

func (r *MongoStore) Find(ctx context.Context, collection string, filter map[string]any, limit int64) ([]Document, error) {
	query, err := mongoFilter(filter)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: FieldCreatedAt, Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.db.Collection(collection).Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var raw []bson.M
	if err = cursor.All(ctx, &raw); err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(raw))
	for _, m := range raw {
		docs = append(docs, fromBSON(m))
	}
	return docs, nil
}

func (r *MongoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var m bson.M
	err = r.db.Collection(collection).FindOne(ctx, bson.M{"_id": oid}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromBSON(m), nil
}

func (r *MongoStore) Create(ctx context.Context, collection string, data Document) (Document, error) {
	oid := primitive.NewObjectID()
	now := time.Now().UTC()

	record := bson.M{}
	for k, v := range data {
		if k != FieldID {
			record[k] = v
		}
	}
	record["_id"] = oid
	record[FieldCreatedAt] = now
	record[FieldUpdatedAt] = now

	if _, err := r.db.Collection(collection).InsertOne(ctx, record); err != nil {
		return nil, err
	}
	return fromBSON(record), nil
}

func (r *MongoStore) Update(ctx context.Context, collection, id string, data Document) (Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	set := bson.M{}
	for k, v := range data {
		if k != FieldID {
			set[k] = v
		}
	}
	set[FieldUpdatedAt] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var m bson.M
	err = r.db.Collection(collection).FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromBSON(m), nil
}

func (r *MongoStore) Delete(ctx context.Context, collection, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	res, err := r.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoStore) Count(ctx context.Context, collection string, filter map[string]any) (int64, error) {
	query, err := mongoFilter(filter)
	if err != nil {
		return 0, err
	}
	return r.db.Collection(collection).CountDocuments(ctx, query)
}

// EnsureIndexes indexes the remote identifier on every synced collection.
func (r *MongoStore) EnsureIndexes(ctx context.Context, collections []string) error {
	for _, name := range collections {
		_, err := r.db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: FieldRemoteID, Value: 1}},
			Options: options.Index().SetSparse(true),
		})
		if err != nil {
			return fmt.Errorf("index %s.%s: %w", name, FieldRemoteID, err)
		}
	}
	return nil
}

func mongoFilter(filter map[string]any) (bson.M, error) {
	query := bson.M{}
	for k, v := range filter {
		if k == FieldID {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("id filter must be a string")
			}
			oid, err := primitive.ObjectIDFromHex(s)
			if err != nil {
				// no document can match an invalid id
				return bson.M{"_id": primitive.NilObjectID}, nil
			}
			query["_id"] = oid
			continue
		}
		query[k] = v
	}
	return query, nil
}

// fromBSON converts a stored record into a plain Document with a string id.
func fromBSON(m bson.M) Document {
	doc := Document{}
	for k, v := range m {
		if k == "_id" {
			if oid, ok := v.(primitive.ObjectID); ok {
				doc[FieldID] = oid.Hex()
			} else {
				doc[FieldID] = fmt.Sprint(v)
			}
			continue
		}
		doc[k] = plainValue(v)
	}
	return doc
}

func plainValue(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = plainValue(inner)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = plainValue(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = plainValue(inner)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.ObjectID:
		return t.Hex()
	case int32:
		return int64(t)
	}
	return v
}
