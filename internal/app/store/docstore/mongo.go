// internal/app/store/docstore/mongo.go
package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Mongo implements Store on a MongoDB database. Live queries are change
// streams, so the deployment must be a replica set or sharded cluster.
type Mongo struct {
	db  *mongo.Database
	log *zap.Logger
}

// NewMongo creates a Mongo-backed Store.
func NewMongo(db *mongo.Database, logger *zap.Logger) *Mongo {
	return &Mongo{db: db, log: logger}
}

// changeEvent is the subset of a change stream event we decode.
type changeEvent struct {
	OperationType string `bson:"operationType"`
	FullDocument  bson.M `bson:"fullDocument"`
	DocumentKey   bson.M `bson:"documentKey"`
}

type liveSub struct {
	once    sync.Once
	stopped atomic.Bool
	cancel  context.CancelFunc
}

func (s *liveSub) stop() {
	s.once.Do(func() {
		s.stopped.Store(true)
		s.cancel()
	})
}

// QueryLive opens a change stream for collection, then reads the current
// matching documents and delivers them as the baseline snapshot (all Added,
// Initial set) before streaming later changes one snapshot per event.
//
// The stream is opened before the baseline read so nothing inserted between
// the two is lost; such a document may then appear in both, which the
// caller's baseline handling tolerates.
func (s *Mongo) QueryLive(ctx context.Context, collection string, q Query, fn func(Snapshot)) (Unsubscribe, error) {
	coll := s.db.Collection(collection)
	filters := q.allFilters()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"operationType": bson.M{"$in": bson.A{"insert", "update", "replace"}},
		}}},
	}
	if m := toBSON("fullDocument.", filters); len(m) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: m}})
	}

	liveCtx, cancel := context.WithCancel(ctx)
	cs, err := coll.Watch(liveCtx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch %s: %w", collection, err)
	}

	baseline, err := s.find(liveCtx, coll, filters)
	if err != nil {
		_ = cs.Close(context.Background())
		cancel()
		return nil, fmt.Errorf("baseline %s: %w", collection, err)
	}

	sub := &liveSub{cancel: cancel}
	go s.pump(liveCtx, collection, cs, baseline, fn, sub)
	return sub.stop, nil
}

func (s *Mongo) pump(ctx context.Context, collection string, cs *mongo.ChangeStream, baseline []Record, fn func(Snapshot), sub *liveSub) {
	defer cs.Close(context.Background())

	initial := Snapshot{Initial: true, Changes: make([]Change, 0, len(baseline))}
	for _, r := range baseline {
		initial.Changes = append(initial.Changes, Change{Type: Added, Doc: r})
	}
	if sub.stopped.Load() {
		return
	}
	fn(initial)

	for cs.Next(ctx) {
		var ev changeEvent
		if err := cs.Decode(&ev); err != nil {
			s.log.Warn("docstore: undecodable change event",
				zap.String("collection", collection), zap.Error(err))
			continue
		}
		ch, ok := changeFromEvent(ev)
		if !ok {
			continue
		}
		if sub.stopped.Load() {
			return
		}
		fn(Snapshot{Changes: []Change{ch}})
	}

	// TODO: resume from cs.ResumeToken() on transient stream errors instead
	// of ending the live query.
	if err := cs.Err(); err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
		s.log.Warn("docstore: change stream ended",
			zap.String("collection", collection), zap.Error(err))
	}
}

func changeFromEvent(ev changeEvent) (Change, bool) {
	var t ChangeType
	switch ev.OperationType {
	case "insert":
		t = Added
	case "update", "replace":
		t = Modified
	default:
		return Change{}, false
	}
	if ev.FullDocument == nil {
		// Updated then deleted before the lookup ran.
		return Change{}, false
	}
	return Change{Type: t, Doc: recordFrom(ev.FullDocument)}, true
}

// GetOnce returns every document in collection matching filters.
func (s *Mongo) GetOnce(ctx context.Context, collection string, filters ...Filter) ([]Record, error) {
	return s.find(ctx, s.db.Collection(collection), filters)
}

func (s *Mongo) find(ctx context.Context, coll *mongo.Collection, filters []Filter) ([]Record, error) {
	cur, err := coll.Find(ctx, toBSON("", filters))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, recordFrom(d))
	}
	return out, nil
}

// AddRecord inserts doc and returns the inserted id.
func (s *Mongo) AddRecord(ctx context.Context, collection string, doc any) (string, error) {
	res, err := s.db.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return "", err
	}
	return idString(res.InsertedID), nil
}

// GetByID returns the document with the given id, or nil if none exists.
func (s *Mongo) GetByID(ctx context.Context, collection, id string) (*Record, error) {
	var doc bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": objectIDValue(id)}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r := recordFrom(doc)
	return &r, nil
}

func recordFrom(doc bson.M) Record {
	return Record{ID: idString(doc["_id"]), Data: map[string]any(doc)}
}

func idString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}
