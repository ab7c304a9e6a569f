// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each collection's set is reconciled
idempotently; problems are aggregated so startup can fail fast with all of
them visible.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	var problems []string

	for _, c := range collections() {
		if err := ensureIndexSet(ctx, db.Collection(c.name), c.models, logger); err != nil {
			problems = append(problems, c.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type collectionIndexes struct {
	name   string
	models []mongo.IndexModel
}

func collections() []collectionIndexes {
	return []collectionIndexes{
		{"users", []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("uniq_users_email").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "role", Value: 1}},
				Options: options.Index().SetName("idx_users_role"),
			},
		}},
		{"projects", []mongo.IndexModel{
			// new-listing live query: created_at >= cutoff
			{
				Keys:    bson.D{{Key: "created_at", Value: 1}},
				Options: options.Index().SetName("idx_projects_created"),
			},
			// seller scope: owner_id == uid
			{
				Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: 1}},
				Options: options.Index().SetName("idx_projects_owner_created"),
			},
		}},
		{"transactions", []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "buyer_id", Value: 1}, {Key: "created_at", Value: 1}},
				Options: options.Index().SetName("idx_tx_buyer_created"),
			},
			{
				Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "created_at", Value: 1}},
				Options: options.Index().SetName("idx_tx_project_created"),
			},
		}},
		{"notifications", []mongo.IndexModel{
			// inbox listing, newest first
			{
				Keys:    bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("idx_notifications_recipient_created"),
			},
			// unread badge
			{
				Keys:    bson.D{{Key: "recipient_id", Value: 1}, {Key: "read", Value: 1}},
				Options: options.Index().SetName("idx_notifications_recipient_read"),
			},
		}},
	}
}

/* -------------------------------------------------------------------------- */
/* Reconcile a set of desired indexes for one collection                      */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(p *bool) bool { return p != nil && *p }

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

func listIndexes(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel, logger *zap.Logger) error {
	existing, err := listIndexes(ctx, coll)
	if err != nil {
		// A collection that does not exist yet lists nothing on most servers
		// but errors on some; either way every index gets created.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		if err := ensureOne(ctx, coll, m, existing, logger); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func ensureOne(ctx context.Context, coll *mongo.Collection, m mongo.IndexModel, existing map[string]existingIndex, logger *zap.Logger) error {
	var name string
	var unique *bool
	if m.Options != nil {
		if m.Options.Name != nil {
			name = *m.Options.Name
		}
		unique = m.Options.Unique
	}
	sig := keySig(m.Keys.(bson.D))
	start := time.Now()
	log := logger.With(
		zap.String("collection", coll.Name()),
		zap.String("name", name),
		zap.String("keys", sig))

	ex, found := existing[sig]
	switch {
	case found && boolVal(ex.Unique) == boolVal(unique) && (name == "" || ex.Name == name):
		log.Debug("reusing existing index")
		return nil

	case found:
		// Same keys under another name or with other options: drop and recreate.
		if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
			return fmt.Errorf("%s(%s): drop %s failed: %w", coll.Name(), name, ex.Name, err)
		}
		log.Info("dropped index for recreate", zap.String("previous", ex.Name))
	}

	if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
		if isDuplicateKeyErr(err) && boolVal(unique) {
			return fmt.Errorf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), name)
		}
		return fmt.Errorf("%s(%s): %w", coll.Name(), name, err)
	}
	log.Info("index ensured", zap.Bool("unique", boolVal(unique)), zap.Duration("took", time.Since(start)))
	return nil
}
