package tablestore

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"
)

// Memory is an in-process Backend. Query snapshots the matching rows under
// the read lock and yields them after releasing it.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]map[string]map[string]Properties // table -> partition -> row -> props
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		tables: make(map[string]map[string]map[string]Properties),
	}
}

func (m *Memory) Table(name string) Table {
	return &memoryTable{backend: m, name: name}
}

func (m *Memory) EnsureTable(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tables[name]; !ok {
		m.tables[name] = make(map[string]map[string]Properties)
	}

	return nil
}

func (m *Memory) Ping(_ context.Context) error {
	return nil
}

type memoryTable struct {
	backend *Memory
	name    string
}

func (t *memoryTable) Name() string {
	return t.name
}

// partitions returns the table, creating it lazily. Caller must hold the write lock.
func (t *memoryTable) partitions() map[string]map[string]Properties {
	parts, ok := t.backend.tables[t.name]
	if !ok {
		parts = make(map[string]map[string]Properties)
		t.backend.tables[t.name] = parts
	}

	return parts
}

func (t *memoryTable) Create(_ context.Context, e Entity) error {
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()

	parts := t.partitions()

	rows, ok := parts[e.PartitionKey]
	if !ok {
		rows = make(map[string]Properties)
		parts[e.PartitionKey] = rows
	}

	if _, exists := rows[e.RowKey]; exists {
		return fmt.Errorf("%s/%s/%s: %w", t.name, e.PartitionKey, e.RowKey, ErrConflict)
	}

	rows[e.RowKey] = e.Properties.Clone()

	return nil
}

func (t *memoryTable) Get(_ context.Context, partition, row string) (Entity, error) {
	t.backend.mu.RLock()
	defer t.backend.mu.RUnlock()

	props, ok := t.backend.tables[t.name][partition][row]
	if !ok {
		return Entity{}, ErrNotFound
	}

	return Entity{PartitionKey: partition, RowKey: row, Properties: props.Clone()}, nil
}

func (t *memoryTable) Update(_ context.Context, e Entity, mode UpdateMode) error {
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()

	rows := t.backend.tables[t.name][e.PartitionKey]

	current, ok := rows[e.RowKey]
	if !ok {
		return ErrNotFound
	}

	if mode == Replace {
		rows[e.RowKey] = e.Properties.Clone()

		return nil
	}

	for k, v := range e.Properties {
		current[k] = v
	}

	return nil
}

func (t *memoryTable) Delete(_ context.Context, partition, row string) error {
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()

	rows, ok := t.backend.tables[t.name][partition]
	if !ok {
		return nil
	}

	delete(rows, row)

	if len(rows) == 0 {
		delete(t.backend.tables[t.name], partition)
	}

	return nil
}

func (t *memoryTable) Query(ctx context.Context, q Query) iter.Seq2[Entity, error] {
	return func(yield func(Entity, error) bool) {
		for _, e := range t.snapshot(q) {
			if err := ctx.Err(); err != nil {
				yield(Entity{}, err)

				return
			}

			if !yield(e, nil) {
				return
			}
		}
	}
}

func (t *memoryTable) snapshot(q Query) []Entity {
	t.backend.mu.RLock()
	defer t.backend.mu.RUnlock()

	parts := t.backend.tables[t.name]

	partitionKeys := []string{q.Partition}
	if q.Partition == "" {
		partitionKeys = sortedKeys(parts)
	}

	var out []Entity

	for _, pk := range partitionKeys {
		rows := parts[pk]
		for _, rk := range sortedKeys(rows) {
			e := Entity{PartitionKey: pk, RowKey: rk, Properties: rows[rk].Clone()}
			if q.Matches(e) {
				out = append(out, e)
			}
		}
	}

	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

// Compile-time check.
var _ Backend = (*Memory)(nil)
