// Package mongostore is the MongoDB docstore backend.
//
// Filters, sorting and paging are pushed down to the server. Values are
// normalized on the way out: int32 widens to int64, DateTime becomes
// time.Time and ObjectID becomes its hex string.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/yndnr/collsnap/pkg/docstore"
	"github.com/yndnr/collsnap/pkg/errcode"
)

// Config configures the MongoDB backend.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// Store is a MongoDB-backed docstore.Store.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

// Open connects to cfg.URI and verifies the connection with a ping.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongostore: uri is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongostore: database is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI).SetConnectTimeout(cfg.ConnectTimeout))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}

	logger.Info("mongo store connected", "uri", cfg.URI, "database", cfg.Database)
	return &Store{client: client, db: client.Database(cfg.Database), logger: logger}, nil
}

// Backend implements docstore.Store.
func (s *Store) Backend() string { return "mongo" }

// Database returns the name of the database in use.
func (s *Store) Database() string { return s.db.Name() }

// Collection implements docstore.Store.
func (s *Store) Collection(name string) docstore.Collection {
	return &collection{coll: s.db.Collection(name), name: name}
}

// ListCollections implements docstore.Store. System collections are
// omitted.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, docstore.StorageError("list collections", s.db.Name(), err)
	}
	out := names[:0]
	for _, n := range names {
		if !strings.HasPrefix(n, "system.") {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out, nil
}

// EnsureUnique implements docstore.UniqueIndexer.
func (s *Store) EnsureUnique(ctx context.Context, collection, field string) error {
	_, err := s.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return docstore.StorageError("create index", collection, err)
	}
	return nil
}

// DropDatabase removes the whole database. Tests use it for cleanup.
func (s *Store) DropDatabase(ctx context.Context) error {
	return s.db.Drop(ctx)
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

type collection struct {
	coll *mongo.Collection
	name string
}

func (c *collection) Name() string { return c.name }

func (c *collection) Insert(ctx context.Context, doc docstore.Document) (string, error) {
	ids, err := c.InsertMany(ctx, []docstore.Document{doc})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

func (c *collection) InsertMany(ctx context.Context, docs []docstore.Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	batch := make([]any, 0, len(docs))
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		cp := docstore.Clone(d)
		id, err := docstore.EnsureID(cp)
		if err != nil {
			return nil, err
		}
		batch = append(batch, map[string]any(cp))
		ids = append(ids, id)
	}

	res, err := c.coll.InsertMany(ctx, batch)
	if err != nil {
		inserted := 0
		if res != nil {
			inserted = len(res.InsertedIDs)
		}
		if mongo.IsDuplicateKeyError(err) {
			return ids[:inserted], errcode.ErrDuplicateKey.WithDetailf("collection=%s", c.name).WithCause(err)
		}
		return ids[:inserted], docstore.StorageError("insert", c.name, err)
	}
	return ids, nil
}

func (c *collection) Find(ctx context.Context, q *docstore.Query) ([]docstore.Document, error) {
	opts := options.Find()
	if q != nil {
		if len(q.Sorts) > 0 {
			opts.SetSort(sortDoc(q.Sorts))
		}
		if q.Limit > 0 {
			opts.SetLimit(q.Limit)
		}
		if q.Skip > 0 {
			opts.SetSkip(q.Skip)
		}
	}

	cur, err := c.coll.Find(ctx, filterDoc(q), opts)
	if err != nil {
		return nil, docstore.StorageError("find", c.name, err)
	}
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, docstore.StorageError("find", c.name, err)
	}

	out := make([]docstore.Document, len(raw))
	for i, m := range raw {
		out[i] = docstore.Document(fromBSON(m).(map[string]any))
	}
	return out, nil
}

func (c *collection) FindOne(ctx context.Context, q *docstore.Query) (docstore.Document, error) {
	opts := options.FindOne()
	if q != nil {
		if len(q.Sorts) > 0 {
			opts.SetSort(sortDoc(q.Sorts))
		}
		if q.Skip > 0 {
			opts.SetSkip(q.Skip)
		}
	}

	var m bson.M
	err := c.coll.FindOne(ctx, filterDoc(q), opts).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errcode.ErrNotFound.WithDetailf("collection=%s", c.name)
	}
	if err != nil {
		return nil, docstore.StorageError("find one", c.name, err)
	}
	return docstore.Document(fromBSON(m).(map[string]any)), nil
}

func (c *collection) Count(ctx context.Context, q *docstore.Query) (int64, error) {
	opts := options.Count()
	if q != nil {
		if q.Limit > 0 {
			opts.SetLimit(q.Limit)
		}
		if q.Skip > 0 {
			opts.SetSkip(q.Skip)
		}
	}
	n, err := c.coll.CountDocuments(ctx, filterDoc(q), opts)
	if err != nil {
		return 0, docstore.StorageError("count", c.name, err)
	}
	return n, nil
}

func (c *collection) DeleteMany(ctx context.Context, q *docstore.Query) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, filterDoc(q))
	if err != nil {
		return 0, docstore.StorageError("delete", c.name, err)
	}
	return res.DeletedCount, nil
}

func (c *collection) Drop(ctx context.Context) error {
	if err := c.coll.Drop(ctx); err != nil {
		return docstore.StorageError("drop", c.name, err)
	}
	return nil
}

func filterDoc(q *docstore.Query) bson.D {
	if q == nil || len(q.Filters) == 0 {
		return bson.D{}
	}
	clauses := make(bson.A, 0, len(q.Filters))
	for _, f := range q.Filters {
		clauses = append(clauses, bson.D{{Key: f.Field, Value: bson.D{{Key: string(f.Op), Value: f.Value}}}})
	}
	return bson.D{{Key: "$and", Value: clauses}}
}

func sortDoc(keys []docstore.SortKey) bson.D {
	d := make(bson.D, 0, len(keys))
	for _, k := range keys {
		d = append(d, bson.E{Key: k.Field, Value: int(k.Order)})
	}
	return d
}

func fromBSON(v any) any {
	switch t := v.(type) {
	case bson.M:
		return fromBSON(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = fromBSON(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = fromBSON(e.Value)
		}
		return out
	case bson.A:
		return fromBSON([]any(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = fromBSON(e)
		}
		return out
	case int32:
		return int64(t)
	case bson.DateTime:
		return t.Time().UTC()
	case bson.ObjectID:
		return t.Hex()
	}
	return v
}
