package history

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const connectTimeout = 10 * time.Second

// MongoStore keeps sessions as documents of one collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type sessionDoc struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	User    string             `bson:"user"`
	LoginAt time.Time          `bson:"login_at"`
	Actions []string           `bson:"actions"`
	Path    string             `bson:"path"`
}

func (d sessionDoc) session() Session {
	actions := d.Actions
	if actions == nil {
		actions = []string{}
	}
	return Session{ID: d.ID.Hex(), User: d.User, LoginAt: d.LoginAt, Actions: actions, Path: d.Path}
}

// NewMongoStore connects to uri and verifies the server answers.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: no mongo uri configured", ErrUnreachable)
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}, nil
}

func (s *MongoStore) Create(ctx context.Context, user, path string) (Session, error) {
	doc := sessionDoc{User: user, LoginAt: time.Now().UTC().Truncate(time.Millisecond), Actions: []string{}, Path: path}
	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.session(), nil
}

func (s *MongoStore) AppendAction(ctx context.Context, id, action string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$push": bson.M{"actions": action}})
	if err != nil {
		return fmt.Errorf("failed to append action: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context) ([]Session, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "login_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	var docs []sessionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	out := make([]Session, len(docs))
	for i, d := range docs {
		out[i] = d.session()
	}
	return out, nil
}

func (s *MongoStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to clear sessions: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
