// Package tablestore provides a partitioned key-value entity store.
//
// Entities are addressed by (PartitionKey, RowKey) inside a named table and
// carry a flat set of string properties. Single-entity writes are atomic; no
// operation spans more than one entity.
package tablestore

import (
	"context"
	"errors"
	"iter"
	"strconv"
	"time"
)

var (
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned by Create when the entity already exists.
	ErrConflict = errors.New("entity already exists")
)

// UpdateMode selects how Update treats properties that are not supplied.
type UpdateMode int

const (
	// Merge overwrites the supplied properties and leaves the rest untouched.
	Merge UpdateMode = iota
	// Replace drops every property that is not supplied.
	Replace
)

func (m UpdateMode) String() string {
	if m == Replace {
		return "replace"
	}

	return "merge"
}

// Properties holds the attributes of an entity.
type Properties map[string]string

// Int64 returns the property parsed as an integer, or zero.
func (p Properties) Int64(key string) int64 {
	v, err := strconv.ParseInt(p[key], 10, 64)
	if err != nil {
		return 0
	}

	return v
}

// SetInt64 stores an integer property.
func (p Properties) SetInt64(key string, v int64) {
	p[key] = strconv.FormatInt(v, 10)
}

// Time returns the property parsed as an RFC 3339 timestamp, or the zero time.
func (p Properties) Time(key string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, p[key])
	if err != nil {
		return time.Time{}
	}

	return t
}

// OptionalTime returns nil when the property is absent, empty or unparsable.
func (p Properties) OptionalTime(key string) *time.Time {
	t := p.Time(key)
	if t.IsZero() {
		return nil
	}

	return &t
}

// SetTime stores a timestamp in UTC.
func (p Properties) SetTime(key string, t time.Time) {
	p[key] = t.UTC().Format(time.RFC3339Nano)
}

// SetOptionalTime stores a timestamp, or an empty value for nil.
func (p Properties) SetOptionalTime(key string, t *time.Time) {
	if t == nil {
		p[key] = ""

		return
	}

	p.SetTime(key, *t)
}

// Clone returns a copy that shares no state with p.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}

	return out
}

// Entity is a single row in a table.
type Entity struct {
	PartitionKey string
	RowKey       string
	Properties   Properties
}

// Query selects entities. An empty Partition traverses every partition.
type Query struct {
	Partition string
	// Equals keeps entities whose properties match every pair exactly.
	Equals map[string]string
	// Filter is evaluated after Equals.
	Filter func(Entity) bool
}

// Matches reports whether e satisfies the query.
func (q Query) Matches(e Entity) bool {
	if q.Partition != "" && e.PartitionKey != q.Partition {
		return false
	}

	for k, v := range q.Equals {
		if e.Properties[k] != v {
			return false
		}
	}

	if q.Filter != nil && !q.Filter(e) {
		return false
	}

	return true
}

// Table is a named collection of entities.
type Table interface {
	Name() string
	Create(ctx context.Context, e Entity) error
	Get(ctx context.Context, partition, row string) (Entity, error)
	Update(ctx context.Context, e Entity, mode UpdateMode) error
	// Delete is idempotent.
	Delete(ctx context.Context, partition, row string) error
	// Query yields matching entities lazily, ordered by partition then row.
	Query(ctx context.Context, q Query) iter.Seq2[Entity, error]
}

// Backend opens tables on a storage engine.
type Backend interface {
	Table(name string) Table
	// EnsureTable creates the table if it does not exist yet.
	EnsureTable(ctx context.Context, name string) error
	Ping(ctx context.Context) error
}

// Collect drains a query into a slice.
func Collect(seq iter.Seq2[Entity, error]) ([]Entity, error) {
	var out []Entity

	for e, err := range seq {
		if err != nil {
			return nil, err
		}

		out = append(out, e)
	}

	return out, nil
}
