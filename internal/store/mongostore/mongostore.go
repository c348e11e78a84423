// Package mongostore keeps the topic list in a MongoDB collection.
package mongostore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/TobiSchelling/ContentMachine/internal/apierr"
	"github.com/TobiSchelling/ContentMachine/internal/store"
	"github.com/TobiSchelling/ContentMachine/internal/topics"
)

var _ store.Store = (*Store)(nil)

// document is one stored row. Missing fields decode as zero values.
type document struct {
	Position int    `bson:"position"`
	Index    any    `bson:"index"`
	Title    string `bson:"title"`
	Reason   string `bson:"reason"`
	Summary  string `bson:"summary"`
}

// Store is a MongoDB-backed topic store.
type Store struct {
	mu     sync.Mutex
	client *mongo.Client
	coll   *mongo.Collection
}

// New connects to uri and uses the trending_topics collection of database.
func New(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri: %w", apierr.ErrCredentialMissing)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	return &Store{
		client: client,
		coll:   client.Database(database).Collection(store.TableName),
	}, nil
}

// Save deletes every document and inserts the list in order.
func (s *Store) Save(ctx context.Context, list []topics.Topic) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return "", fmt.Errorf("clearing topics: %w", err)
	}

	if len(list) > 0 {
		docs := make([]any, len(list))
		for i, t := range list {
			docs[i] = document{Position: i + 1, Index: t.Index, Title: t.Title, Reason: t.Reason, Summary: t.Summary}
		}
		if _, err := s.coll.InsertMany(ctx, docs); err != nil {
			return "", fmt.Errorf("inserting topics: %w", err)
		}
	}
	return "mongo:" + s.coll.Database().Name() + "." + store.TableName, nil
}

// Load returns documents sorted by position. The index field may hold any
// type; values that are not integers fall back to the row position.
func (s *Store) Load(ctx context.Context) ([]topics.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})
	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("finding topics: %w", err)
	}
	defer cursor.Close(ctx)

	list := []topics.Topic{}
	for n := 1; cursor.Next(ctx); n++ {
		var d document
		if err := cursor.Decode(&d); err != nil {
			return nil, fmt.Errorf("decoding topic: %w", err)
		}
		list = append(list, topics.Topic{
			Index:   store.ParseIndex(fmt.Sprint(d.Index), n),
			Title:   d.Title,
			Reason:  d.Reason,
			Summary: d.Summary,
		})
	}
	return list, cursor.Err()
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
