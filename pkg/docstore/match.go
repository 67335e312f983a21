package docstore

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Apply evaluates q over docs in memory: filter, stable sort, skip, limit.
// Backends without native query support (memory, badger, sqlite) use it.
func Apply(docs []Document, q *Query) []Document {
	if q == nil {
		return docs
	}

	out := docs[:0:0]
	for _, d := range docs {
		if Matches(d, q.Filters) {
			out = append(out, d)
		}
	}

	if len(q.Sorts) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, k := range q.Sorts {
				a, _ := Lookup(out[i], k.Field)
				b, _ := Lookup(out[j], k.Field)
				c := compareValues(a, b)
				if c == 0 {
					continue
				}
				if k.Order == Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if q.Skip > 0 {
		if q.Skip >= int64(len(out)) {
			return nil
		}
		out = out[q.Skip:]
	}
	if q.Limit > 0 && int64(len(out)) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// Matches reports whether doc satisfies every filter.
func Matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		v, ok := Lookup(doc, f.Field)
		if !matchOne(v, ok, f) {
			return false
		}
	}
	return true
}

func matchOne(v any, present bool, f Filter) bool {
	switch f.Op {
	case OpEq:
		return present && equalValues(v, f.Value)
	case OpNe:
		return !present || !equalValues(v, f.Value)
	case OpIn:
		if !present {
			return false
		}
		rv := reflect.ValueOf(f.Value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return false
		}
		for i := 0; i < rv.Len(); i++ {
			if equalValues(v, rv.Index(i).Interface()) {
				return true
			}
		}
		return false
	}

	if !present || !orderable(v, f.Value) {
		return false
	}
	c := compareValues(v, f.Value)
	switch f.Op {
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	}
	return false
}

// Lookup resolves a dotted path through nested maps.
func Lookup(doc Document, path string) (any, bool) {
	var cur any = map[string]any(doc)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Document:
		return m, true
	}
	return nil, false
}

// ToFloat converts any numeric value, including json.Number, to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// ToInt64 converts an integral numeric value to int64.
func ToInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	f, ok := ToFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

func orderable(a, b any) bool {
	if _, ok := ToFloat(a); ok {
		_, ok = ToFloat(b)
		return ok
	}
	switch a.(type) {
	case string:
		_, ok := b.(string)
		return ok
	case time.Time:
		_, ok := b.(time.Time)
		return ok
	}
	return false
}

func equalValues(a, b any) bool {
	if fa, ok := ToFloat(a); ok {
		fb, ok := ToFloat(b)
		return ok && fa == fb
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders values of the same family. Missing values sort
// first, and mixed families order by family rank so sorting stays total.
func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 1:
		fa, _ := ToFloat(a)
		fb, _ := ToFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 2:
		return strings.Compare(a.(string), b.(string))
	case 3:
		return a.(time.Time).Compare(b.(time.Time))
	case 4:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	}
	return 0
}

func rank(v any) int {
	if v == nil {
		return 0
	}
	if _, ok := ToFloat(v); ok {
		return 1
	}
	switch v.(type) {
	case string:
		return 2
	case time.Time:
		return 3
	case bool:
		return 4
	}
	return 5
}
