package tablestore

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"slices"

	"github.com/redis/go-redis/v9"
)

// Reserved hash fields that carry the entity address.
const (
	fieldPartition = "_pk"
	fieldRow       = "_rk"
)

// createScript inserts a row only if the hash does not exist yet.
// KEYS: entity hash, partitions set, rows set. ARGV: partition, row, field/value pairs.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], '_pk', ARGV[1], '_rk', ARGV[2], unpack(ARGV, 3))
redis.call('SADD', KEYS[2], ARGV[1])
redis.call('SADD', KEYS[3], ARGV[2])
return 1
`)

// updateScript merges into or replaces an existing hash.
// KEYS: entity hash. ARGV: mode, partition, row, field/value pairs.
var updateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
if ARGV[1] == 'replace' then
	redis.call('DEL', KEYS[1])
end
redis.call('HSET', KEYS[1], '_pk', ARGV[2], '_rk', ARGV[3], unpack(ARGV, 4))
return 1
`)

// Redis stores each entity as a hash and keeps set indexes of partitions
// and of rows per partition for traversal.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis creates a Redis-backed table store. Keys are namespaced by prefix.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Table(name string) Table {
	return &redisTable{client: r.client, name: name, prefix: r.prefix + name}
}

func (r *Redis) EnsureTable(ctx context.Context, name string) error {
	return r.client.SAdd(ctx, r.prefix+"tables", name).Err()
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

type redisTable struct {
	client redis.UniversalClient
	name   string
	prefix string
}

func (t *redisTable) Name() string {
	return t.name
}

func (t *redisTable) entityKey(partition, row string) string {
	return fmt.Sprintf("%s:e:%s:%s", t.prefix, url.PathEscape(partition), url.PathEscape(row))
}

func (t *redisTable) partitionsKey() string {
	return t.prefix + ":partitions"
}

func (t *redisTable) rowsKey(partition string) string {
	return fmt.Sprintf("%s:p:%s", t.prefix, url.PathEscape(partition))
}

func (t *redisTable) Create(ctx context.Context, e Entity) error {
	keys := []string{t.entityKey(e.PartitionKey, e.RowKey), t.partitionsKey(), t.rowsKey(e.PartitionKey)}
	args := append([]any{e.PartitionKey, e.RowKey}, flatten(e.Properties)...)

	created, err := createScript.Run(ctx, t.client, keys, args...).Int()
	if err != nil {
		return err
	}

	if created == 0 {
		return fmt.Errorf("%s/%s: %w", e.PartitionKey, e.RowKey, ErrConflict)
	}

	return nil
}

func (t *redisTable) Get(ctx context.Context, partition, row string) (Entity, error) {
	fields, err := t.client.HGetAll(ctx, t.entityKey(partition, row)).Result()
	if err != nil {
		return Entity{}, err
	}

	if len(fields) == 0 {
		return Entity{}, ErrNotFound
	}

	return toEntity(fields), nil
}

func (t *redisTable) Update(ctx context.Context, e Entity, mode UpdateMode) error {
	keys := []string{t.entityKey(e.PartitionKey, e.RowKey)}
	args := append([]any{mode.String(), e.PartitionKey, e.RowKey}, flatten(e.Properties)...)

	updated, err := updateScript.Run(ctx, t.client, keys, args...).Int()
	if err != nil {
		return err
	}

	if updated == 0 {
		return ErrNotFound
	}

	return nil
}

func (t *redisTable) Delete(ctx context.Context, partition, row string) error {
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, t.entityKey(partition, row))
		pipe.SRem(ctx, t.rowsKey(partition), row)

		return nil
	})

	return err
}

func (t *redisTable) Query(ctx context.Context, q Query) iter.Seq2[Entity, error] {
	return func(yield func(Entity, error) bool) {
		partitions := []string{q.Partition}

		if q.Partition == "" {
			all, err := t.client.SMembers(ctx, t.partitionsKey()).Result()
			if err != nil {
				yield(Entity{}, err)

				return
			}

			slices.Sort(all)
			partitions = all
		}

		for _, partition := range partitions {
			if !t.scanPartition(ctx, partition, q, yield) {
				return
			}
		}
	}
}

// scanPartition yields matching rows of one partition. It returns false when
// iteration must stop.
func (t *redisTable) scanPartition(ctx context.Context, partition string, q Query, yield func(Entity, error) bool) bool {
	rows, err := t.client.SMembers(ctx, t.rowsKey(partition)).Result()
	if err != nil {
		yield(Entity{}, err)

		return false
	}

	slices.Sort(rows)

	for _, row := range rows {
		e, err := t.Get(ctx, partition, row)
		if errors.Is(err, ErrNotFound) {
			// Deleted between the index read and the hash read.
			continue
		}

		if err != nil {
			yield(Entity{}, err)

			return false
		}

		if !q.Matches(e) {
			continue
		}

		if !yield(e, nil) {
			return false
		}
	}

	return true
}

func flatten(props Properties) []any {
	out := make([]any, 0, len(props)*2)

	for _, k := range sortedKeys(props) {
		out = append(out, k, props[k])
	}

	return out
}

func toEntity(fields map[string]string) Entity {
	e := Entity{
		PartitionKey: fields[fieldPartition],
		RowKey:       fields[fieldRow],
		Properties:   make(Properties, len(fields)),
	}

	for k, v := range fields {
		if k == fieldPartition || k == fieldRow {
			continue
		}

		e.Properties[k] = v
	}

	return e
}

// Compile-time check.
var _ Backend = (*Redis)(nil)
