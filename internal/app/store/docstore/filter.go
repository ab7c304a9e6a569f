// internal/app/store/docstore/filter.go
package docstore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Op is a filter predicate operator.
type Op string

const (
	OpEq  Op = "eq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpIn  Op = "in"
)

// Filter is a single field predicate. Filters in a query are ANDed.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Eq matches documents whose field equals v.
func Eq(field string, v any) Filter { return Filter{Field: field, Op: OpEq, Value: v} }

// Gt matches documents whose field is strictly greater than v.
func Gt(field string, v any) Filter { return Filter{Field: field, Op: OpGt, Value: v} }

// Gte matches documents whose field is greater than or equal to v.
func Gte(field string, v any) Filter { return Filter{Field: field, Op: OpGte, Value: v} }

// In matches documents whose field is one of values. An empty set matches nothing.
func In[T any](field string, values []T) Filter {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return Filter{Field: field, Op: OpIn, Value: vs}
}

// toBSON renders filters as a Mongo match document. prefix is prepended to
// every field name ("fullDocument." for change stream pipelines).
func toBSON(prefix string, filters []Filter) bson.M {
	m := bson.M{}
	for _, f := range filters {
		key := prefix + f.Field
		val := f.Value
		if f.Field == "_id" {
			val = objectIDValue(val)
		}

		var cond any
		switch f.Op {
		case OpEq:
			cond = val
		case OpGt:
			cond = bson.M{"$gt": val}
		case OpGte:
			cond = bson.M{"$gte": val}
		case OpIn:
			cond = bson.M{"$in": val}
		default:
			continue
		}

		// Two predicates on one field (e.g. a range plus the cutoff) merge.
		if prev, ok := m[key].(bson.M); ok {
			if next, ok := cond.(bson.M); ok {
				for k, v := range next {
					prev[k] = v
				}
				continue
			}
		}
		m[key] = cond
	}
	return m
}

// objectIDValue converts hex id strings (or slices of them) into ObjectIDs so
// _id predicates match Mongo-generated ids.
func objectIDValue(v any) any {
	switch t := v.(type) {
	case string:
		if oid, err := primitive.ObjectIDFromHex(t); err == nil {
			return oid
		}
		return t
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = objectIDValue(x)
		}
		return out
	default:
		return v
	}
}

// Matches reports whether data satisfies every filter. It is the in-process
// equivalent of toBSON used by Memory.
func Matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		got, ok := data[f.Field]
		if !ok {
			return false
		}
		switch f.Op {
		case OpEq:
			if c, ok := compare(got, f.Value); !ok || c != 0 {
				return false
			}
		case OpGt:
			if c, ok := compare(got, f.Value); !ok || c <= 0 {
				return false
			}
		case OpGte:
			if c, ok := compare(got, f.Value); !ok || c < 0 {
				return false
			}
		case OpIn:
			set, _ := f.Value.([]any)
			found := false
			for _, want := range set {
				if c, ok := compare(got, want); ok && c == 0 {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// compare orders two scalar values of compatible kinds.
func compare(a, b any) (int, bool) {
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case primitive.DateTime:
		return compare(x.Time(), b)
	case primitive.ObjectID:
		return compare(x.Hex(), b)
	case string:
		var y string
		switch t := b.(type) {
		case string:
			y = t
		case primitive.ObjectID:
			y = t.Hex()
		default:
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case bool:
		y, ok := b.(bool)
		if !ok || x != y {
			return 1, ok
		}
		return 0, true
	}

	xf, ok1 := toFloat(a)
	yf, ok2 := toFloat(b)
	if !ok1 || !ok2 {
		return 0, false
	}
	switch {
	case xf < yf:
		return -1, true
	case xf > yf:
		return 1, true
	}
	return 0, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
