// Package docstore is the MongoDB core.Store.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/edvin/civicwatch/internal/core"
)

// Collection names.
const (
	colReports     = "reports"
	colEscalations = "escalations"
	colIncidents   = "incidents"
	colActions     = "incident_actions"
	colAudit       = "audit_logs"
)

const connectTimeout = 15 * time.Second

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ core.Store = (*Store)(nil)

// Connect dials MongoDB, pings it and ensures the indexes exist.
func Connect(ctx context.Context, uri, database string, logger zerolog.Logger) (*Store, error) {
	dctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(dctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(dctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := &Store{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(dctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	logger.Info().Str("database", database).Msg("connected to mongodb")
	return s, nil
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	newestFirst := bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	indexes := map[string][]mongo.IndexModel{
		colReports: {
			{Keys: newestFirst},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "event_type", Value: 1}, {Key: "observed_at", Value: -1}}},
			{Keys: bson.D{{Key: "location.lat", Value: 1}, {Key: "location.lng", Value: 1}}},
		},
		colEscalations: {
			{Keys: bson.D{{Key: "report_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colIncidents: {
			{Keys: newestFirst},
			{Keys: bson.D{{Key: "report_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colActions: {
			{Keys: bson.D{{Key: "incident_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "action", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}
	for name, models := range indexes {
		if _, err := s.col(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.ErrNotFound
	}
	return err
}

// findPage runs a newest-first find honoring the cursor and limit of a list query.
func findPage[T any](ctx context.Context, c *mongo.Collection, filter bson.D, cursor string, limit int) ([]T, error) {
	if cursor != "" {
		var anchor struct {
			ID        string    `bson:"_id"`
			CreatedAt time.Time `bson:"created_at"`
		}
		err := c.FindOne(ctx, bson.D{{Key: "_id", Value: cursor}}).Decode(&anchor)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []T{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("load cursor %s: %w", cursor, err)
		}
		filter = append(filter, olderThan(anchor.CreatedAt, anchor.ID))
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit + 1))
	}
	return findAll[T](ctx, c, filter, opts)
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter bson.D, opts *options.FindOptions) ([]T, error) {
	cur, err := c.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", c.Name(), err)
	}
	defer cur.Close(ctx)

	out := []T{}
	for cur.Next(ctx) {
		var doc T
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", c.Name(), err)
		}
		out = append(out, doc)
	}
	return out, cur.Err()
}

// casReplace replaces the document only while its status still equals expected.
func casReplace(ctx context.Context, c *mongo.Collection, id string, expected string, doc any) error {
	res, err := c.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}, {Key: "status", Value: expected}}, doc)
	if err != nil {
		return fmt.Errorf("replace %s %s: %w", c.Name(), id, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := c.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("check %s %s: %w", c.Name(), id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return core.ErrConflict
}
