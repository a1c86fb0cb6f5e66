package tablestore_test

import (
	"context"
	"testing"

	"github.com/serroba/shortlinks/internal/tablestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runConformance exercises the behavior every Backend must share.
func runConformance(t *testing.T, newBackend func(t *testing.T) tablestore.Backend) {
	t.Helper()

	ctx := context.Background()

	newTable := func(t *testing.T) tablestore.Table {
		t.Helper()

		backend := newBackend(t)
		require.NoError(t, backend.EnsureTable(ctx, "links"))

		return backend.Table("links")
	}

	t.Run("create then get returns the entity", func(t *testing.T) {
		table := newTable(t)

		err := table.Create(ctx, tablestore.Entity{
			PartitionKey: "anonymous",
			RowKey:       "abc123",
			Properties:   tablestore.Properties{"longUrl": "https://example.com"},
		})
		require.NoError(t, err)

		got, err := table.Get(ctx, "anonymous", "abc123")
		require.NoError(t, err)
		assert.Equal(t, "anonymous", got.PartitionKey)
		assert.Equal(t, "abc123", got.RowKey)
		assert.Equal(t, "https://example.com", got.Properties["longUrl"])
	})

	t.Run("create on existing row returns ErrConflict and keeps original", func(t *testing.T) {
		table := newTable(t)

		first := tablestore.Entity{PartitionKey: "p", RowKey: "r", Properties: tablestore.Properties{"v": "1"}}
		second := tablestore.Entity{PartitionKey: "p", RowKey: "r", Properties: tablestore.Properties{"v": "2"}}

		require.NoError(t, table.Create(ctx, first))

		err := table.Create(ctx, second)
		require.ErrorIs(t, err, tablestore.ErrConflict)

		got, err := table.Get(ctx, "p", "r")
		require.NoError(t, err)
		assert.Equal(t, "1", got.Properties["v"])
	})

	t.Run("same row key in different partitions does not conflict", func(t *testing.T) {
		table := newTable(t)

		require.NoError(t, table.Create(ctx, tablestore.Entity{PartitionKey: "a", RowKey: "x", Properties: tablestore.Properties{}}))
		require.NoError(t, table.Create(ctx, tablestore.Entity{PartitionKey: "b", RowKey: "x", Properties: tablestore.Properties{}}))
	})

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		table := newTable(t)

		_, err := table.Get(ctx, "p", "missing")
		assert.ErrorIs(t, err, tablestore.ErrNotFound)
	})

	t.Run("merge keeps unspecified properties", func(t *testing.T) {
		table := newTable(t)

		require.NoError(t, table.Create(ctx, tablestore.Entity{
			PartitionKey: "p",
			RowKey:       "r",
			Properties:   tablestore.Properties{"a": "1", "b": "2"},
		}))

		err := table.Update(ctx, tablestore.Entity{
			PartitionKey: "p",
			RowKey:       "r",
			Properties:   tablestore.Properties{"b": "3"},
		}, tablestore.Merge)
		require.NoError(t, err)

		got, err := table.Get(ctx, "p", "r")
		require.NoError(t, err)
		assert.Equal(t, tablestore.Properties{"a": "1", "b": "3"}, got.Properties)
	})

	t.Run("replace drops unspecified properties", func(t *testing.T) {
		table := newTable(t)

		require.NoError(t, table.Create(ctx, tablestore.Entity{
			PartitionKey: "p",
			RowKey:       "r",
			Properties:   tablestore.Properties{"a": "1", "b": "2"},
		}))

		err := table.Update(ctx, tablestore.Entity{
			PartitionKey: "p",
			RowKey:       "r",
			Properties:   tablestore.Properties{"b": "3"},
		}, tablestore.Replace)
		require.NoError(t, err)

		got, err := table.Get(ctx, "p", "r")
		require.NoError(t, err)
		assert.Equal(t, tablestore.Properties{"b": "3"}, got.Properties)
	})

	t.Run("update missing returns ErrNotFound", func(t *testing.T) {
		table := newTable(t)

		err := table.Update(ctx, tablestore.Entity{PartitionKey: "p", RowKey: "nope"}, tablestore.Merge)
		assert.ErrorIs(t, err, tablestore.ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		table := newTable(t)

		require.NoError(t, table.Create(ctx, tablestore.Entity{PartitionKey: "p", RowKey: "r", Properties: tablestore.Properties{}}))
		require.NoError(t, table.Delete(ctx, "p", "r"))
		require.NoError(t, table.Delete(ctx, "p", "r"))

		_, err := table.Get(ctx, "p", "r")
		assert.ErrorIs(t, err, tablestore.ErrNotFound)
	})

	t.Run("query scopes to a partition", func(t *testing.T) {
		table := newTable(t)

		for _, e := range []tablestore.Entity{
			{PartitionKey: "alias1", RowKey: "c2", Properties: tablestore.Properties{"ip": "1.1.1.1"}},
			{PartitionKey: "alias1", RowKey: "c1", Properties: tablestore.Properties{"ip": "2.2.2.2"}},
			{PartitionKey: "alias2", RowKey: "c3", Properties: tablestore.Properties{"ip": "1.1.1.1"}},
		} {
			require.NoError(t, table.Create(ctx, e))
		}

		got, err := tablestore.Collect(table.Query(ctx, tablestore.Query{Partition: "alias1"}))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "c1", got[0].RowKey)
		assert.Equal(t, "c2", got[1].RowKey)
	})

	t.Run("query without partition traverses all partitions", func(t *testing.T) {
		table := newTable(t)

		require.NoError(t, table.Create(ctx, tablestore.Entity{PartitionKey: "b", RowKey: "2", Properties: tablestore.Properties{}}))
		require.NoError(t, table.Create(ctx, tablestore.Entity{PartitionKey: "a", RowKey: "1", Properties: tablestore.Properties{}}))

		got, err := tablestore.Collect(table.Query(ctx, tablestore.Query{}))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "a", got[0].PartitionKey)
		assert.Equal(t, "b", got[1].PartitionKey)
	})

	t.Run("query filters by property equality and predicate", func(t *testing.T) {
		table := newTable(t)

		require.NoError(t, table.Create(ctx, tablestore.Entity{
			PartitionKey: "user", RowKey: "u1", Properties: tablestore.Properties{"email": "a@example.com"},
		}))
		require.NoError(t, table.Create(ctx, tablestore.Entity{
			PartitionKey: "user", RowKey: "u2", Properties: tablestore.Properties{"email": "b@example.com"},
		}))

		got, err := tablestore.Collect(table.Query(ctx, tablestore.Query{
			Equals: map[string]string{"email": "b@example.com"},
		}))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "u2", got[0].RowKey)

		got, err = tablestore.Collect(table.Query(ctx, tablestore.Query{
			Filter: func(e tablestore.Entity) bool { return e.RowKey == "u1" },
		}))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "a@example.com", got[0].Properties["email"])
	})

	t.Run("query stops when the consumer breaks", func(t *testing.T) {
		table := newTable(t)

		for _, row := range []string{"1", "2", "3"} {
			require.NoError(t, table.Create(ctx, tablestore.Entity{PartitionKey: "p", RowKey: row, Properties: tablestore.Properties{}}))
		}

		seen := 0

		for _, err := range table.Query(ctx, tablestore.Query{Partition: "p"}) {
			require.NoError(t, err)

			seen++

			break
		}

		assert.Equal(t, 1, seen)
	})
}
