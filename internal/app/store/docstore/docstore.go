// internal/app/store/docstore/docstore.go

// Package docstore is the generic document-store layer the realtime
// subsystem is written against: live queries over named collections plus
// one-shot get/query/add. Mongo backs it in production; Memory backs tests.
package docstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChangeType classifies one entry of a snapshot.
type ChangeType string

const (
	Added    ChangeType = "added"
	Modified ChangeType = "modified"
	Removed  ChangeType = "removed"
)

// DefaultCreatedField is the field the cutoff predicate applies to.
const DefaultCreatedField = "created_at"

// ErrClosed is returned when a live query is opened on a closed store.
var ErrClosed = errors.New("docstore: store closed")

// Record is one document: its id (hex for ObjectIDs) and its fields.
type Record struct {
	ID   string
	Data map[string]any
}

// String returns a field as a string. ObjectIDs are rendered as hex.
func (r Record) String(field string) string {
	switch v := r.Data[field].(type) {
	case string:
		return v
	case primitive.ObjectID:
		return v.Hex()
	default:
		return ""
	}
}

// Float returns a numeric field as float64, or 0.
func (r Record) Float(field string) float64 {
	switch v := r.Data[field].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// Int returns a numeric field as int64, or 0.
func (r Record) Int(field string) int64 {
	switch v := r.Data[field].(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Change is one per-document entry delivered by a live query.
type Change struct {
	Type ChangeType
	Doc  Record
}

// Snapshot is one delivery from a live query. Initial is set by stores that
// can tell their baseline delivery apart from later ones.
type Snapshot struct {
	Initial bool
	Changes []Change
}

// Query describes a live query: filters plus a creation-time lower bound.
// A zero Cutoff disables the bound.
type Query struct {
	Filters      []Filter
	Cutoff       time.Time
	CreatedField string
}

func (q Query) createdField() string {
	if q.CreatedField == "" {
		return DefaultCreatedField
	}
	return q.CreatedField
}

// allFilters returns the query filters with the cutoff folded in.
func (q Query) allFilters() []Filter {
	if q.Cutoff.IsZero() {
		return q.Filters
	}
	out := make([]Filter, 0, len(q.Filters)+1)
	out = append(out, q.Filters...)
	return append(out, Gte(q.createdField(), q.Cutoff))
}

// Unsubscribe stops a live query. After it returns no further callbacks
// start; a callback already running is allowed to finish. Safe to call twice.
type Unsubscribe func()

// Store is the document-store collaborator.
type Store interface {
	// QueryLive delivers snapshots for collection in store order until the
	// returned Unsubscribe is called or ctx ends.
	QueryLive(ctx context.Context, collection string, q Query, fn func(Snapshot)) (Unsubscribe, error)
	// GetOnce returns all records matching filters.
	GetOnce(ctx context.Context, collection string, filters ...Filter) ([]Record, error)
	// AddRecord inserts doc and returns its id.
	AddRecord(ctx context.Context, collection string, doc any) (string, error)
	// GetByID returns the record or nil when none exists.
	GetByID(ctx context.Context, collection, id string) (*Record, error)
}
