package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const subscriptionBuffer = 1024

// node is the persisted form of one path: the JSON-encoded value plus
// the per-parent append sequence assigned at creation.
type node struct {
	Path   string `bson:"_id"`
	Parent string `bson:"parent"`
	Key    string `bson:"key"`
	Seq    int64  `bson:"seq"`
	Value  []byte `bson:"value"`
}

// MongoStore persists the path tree in MongoDB and fans out committed
// writes to in-process subscribers. One document per node, a counters
// collection issuing per-parent sequences.
type MongoStore struct {
	nodes    *mongo.Collection
	counters *mongo.Collection
	hub      *hub
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		nodes:    db.Collection("nodes"),
		counters: db.Collection("counters"),
		hub:      newHub(),
	}
}

func (s *MongoStore) nextSeq(ctx context.Context, parent string) (int64, error) {
	var out struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": parent},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&out)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate sequence for %s: %w", parent, err)
	}
	return out.Seq, nil
}

func (s *MongoStore) Get(ctx context.Context, path string) (Snapshot, error) {
	var n node
	err := s.nodes.FindOne(ctx, bson.M{"_id": path}).Decode(&n)
	if err == nil {
		return NewSnapshot(n.Value), nil
	}
	if err != mongo.ErrNoDocuments {
		return Snapshot{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	// An interior path exists when any descendant does; the thread
	// existence check relies on this.
	count, err := s.nodes.CountDocuments(ctx, bson.M{"_id": prefixPattern(path)}, options.Count().SetLimit(1))
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to probe %s: %w", path, err)
	}
	if count > 0 {
		return NewSnapshot([]byte("{}")), nil
	}
	return Snapshot{}, nil
}

func (s *MongoStore) GetChildren(ctx context.Context, path string) ([]Child, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cursor, err := s.nodes.Find(ctx, bson.M{"parent": path}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list children of %s: %w", path, err)
	}
	defer cursor.Close(ctx)

	var children []Child
	for cursor.Next(ctx) {
		var n node
		if err := cursor.Decode(&n); err != nil {
			return nil, fmt.Errorf("failed to decode child of %s: %w", path, err)
		}
		children = append(children, Child{Key: n.Key, Seq: n.Seq, Snapshot: NewSnapshot(n.Value)})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate children of %s: %w", path, err)
	}
	return children, nil
}

func (s *MongoStore) Set(ctx context.Context, path string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", path, err)
	}

	res := s.nodes.FindOneAndUpdate(ctx,
		bson.M{"_id": path},
		bson.M{"$set": bson.M{"value": data}},
	)
	if res.Err() == nil {
		s.hub.dispatch(mutation{path: path, parent: parentOf(path), key: keyOf(path), data: data})
		return nil
	}
	if res.Err() != mongo.ErrNoDocuments {
		return fmt.Errorf("failed to write %s: %w", path, res.Err())
	}

	seq, err := s.nextSeq(ctx, parentOf(path))
	if err != nil {
		return err
	}
	n := node{Path: path, Parent: parentOf(path), Key: keyOf(path), Seq: seq, Value: data}
	if _, err := s.nodes.InsertOne(ctx, n); err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	s.hub.dispatch(mutation{path: path, parent: n.Parent, key: n.Key, seq: seq, data: data, created: true})
	return nil
}

func (s *MongoStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	snap, err := s.Get(ctx, path)
	if err != nil {
		return err
	}

	merged := map[string]interface{}{}
	if snap.Exists() {
		if err := snap.Decode(&merged); err != nil {
			return fmt.Errorf("failed to decode current value at %s: %w", path, err)
		}
	}
	for k, v := range fields {
		merged[k] = v
	}
	return s.Set(ctx, path, merged)
}

func (s *MongoStore) Push(ctx context.Context, path string, value interface{}) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode value for %s: %w", path, err)
	}

	key := primitive.NewObjectID().Hex()
	seq, err := s.nextSeq(ctx, path)
	if err != nil {
		return "", err
	}

	n := node{Path: path + "/" + key, Parent: path, Key: key, Seq: seq, Value: data}
	if _, err := s.nodes.InsertOne(ctx, n); err != nil {
		return "", fmt.Errorf("failed to append to %s: %w", path, err)
	}
	s.hub.dispatch(mutation{path: n.Path, parent: path, key: key, seq: seq, data: data, created: true})
	return key, nil
}

func (s *MongoStore) Remove(ctx context.Context, path string) error {
	_, err := s.nodes.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"_id": path},
		bson.M{"_id": prefixPattern(path)},
	}})
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	s.hub.dispatch(mutation{path: path, parent: parentOf(path), key: keyOf(path)})
	return nil
}

func (s *MongoStore) SubscribeChildAdded(path string, fn ChildAddedFunc) (*Subscription, error) {
	sub := &Subscription{
		path:       path,
		kind:       subChildAdded,
		onChild:    fn,
		deliveries: make(chan delivery, subscriptionBuffer),
	}
	err := s.hub.register(sub, func() ([]Child, error) {
		return s.GetChildren(context.Background(), path)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *MongoStore) SubscribeValue(path string, fn ValueFunc) (*Subscription, error) {
	sub := &Subscription{
		path:       path,
		kind:       subValue,
		onValue:    fn,
		assemble:   s.assembleValue,
		deliveries: make(chan delivery, subscriptionBuffer),
	}
	if err := s.hub.register(sub, nil); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *MongoStore) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	s.hub.unregister(sub)
}

func (s *MongoStore) assembleValue(path string) map[string]Snapshot {
	children, err := s.GetChildren(context.Background(), path)
	if err != nil {
		return map[string]Snapshot{}
	}
	out := make(map[string]Snapshot, len(children))
	for _, c := range children {
		out[c.Key] = c.Snapshot
	}
	return out
}

func prefixPattern(path string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(path+"/")}
}
