package tablestore

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Postgres keeps every table in a single relation keyed by
// (table_name, partition_key, row_key) with JSONB properties.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a PostgreSQL-backed table store. Call Migrate first.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Table(name string) Table {
	return &postgresTable{pool: p.pool, name: name}
}

func (p *Postgres) EnsureTable(ctx context.Context, name string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO table_registry (table_name) VALUES ($1) ON CONFLICT (table_name) DO NOTHING`,
		name,
	)

	return err
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

type postgresTable struct {
	pool *pgxpool.Pool
	name string
}

func (t *postgresTable) Name() string {
	return t.name
}

func (t *postgresTable) Create(ctx context.Context, e Entity) error {
	props, err := encodeProperties(e.Properties)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO table_entities (table_name, partition_key, row_key, properties)
		VALUES ($1, $2, $3, $4::jsonb)
		ON CONFLICT (table_name, partition_key, row_key) DO NOTHING
	`

	tag, err := t.pool.Exec(ctx, query, t.name, e.PartitionKey, e.RowKey, props)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s/%s/%s: %w", t.name, e.PartitionKey, e.RowKey, ErrConflict)
	}

	return nil
}

func (t *postgresTable) Get(ctx context.Context, partition, row string) (Entity, error) {
	query := `
		SELECT properties
		FROM table_entities
		WHERE table_name = $1 AND partition_key = $2 AND row_key = $3
	`

	var raw []byte

	err := t.pool.QueryRow(ctx, query, t.name, partition, row).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entity{}, ErrNotFound
		}

		return Entity{}, err
	}

	props, err := decodeProperties(raw)
	if err != nil {
		return Entity{}, err
	}

	return Entity{PartitionKey: partition, RowKey: row, Properties: props}, nil
}

func (t *postgresTable) Update(ctx context.Context, e Entity, mode UpdateMode) error {
	props, err := encodeProperties(e.Properties)
	if err != nil {
		return err
	}

	set := "properties = properties || $4::jsonb"
	if mode == Replace {
		set = "properties = $4::jsonb"
	}

	query := `UPDATE table_entities SET ` + set + `
		WHERE table_name = $1 AND partition_key = $2 AND row_key = $3`

	tag, err := t.pool.Exec(ctx, query, t.name, e.PartitionKey, e.RowKey, props)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (t *postgresTable) Delete(ctx context.Context, partition, row string) error {
	_, err := t.pool.Exec(ctx,
		`DELETE FROM table_entities WHERE table_name = $1 AND partition_key = $2 AND row_key = $3`,
		t.name, partition, row,
	)

	return err
}

func (t *postgresTable) Query(ctx context.Context, q Query) iter.Seq2[Entity, error] {
	return func(yield func(Entity, error) bool) {
		sql, args, err := t.buildQuery(q)
		if err != nil {
			yield(Entity{}, err)

			return
		}

		rows, err := t.pool.Query(ctx, sql, args...)
		if err != nil {
			yield(Entity{}, err)

			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				e   Entity
				raw []byte
			)

			if err := rows.Scan(&e.PartitionKey, &e.RowKey, &raw); err != nil {
				yield(Entity{}, err)

				return
			}

			if e.Properties, err = decodeProperties(raw); err != nil {
				yield(Entity{}, err)

				return
			}

			// Equals is already pushed down; Filter still runs here.
			if q.Filter != nil && !q.Filter(e) {
				continue
			}

			if !yield(e, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(Entity{}, err)
		}
	}
}

func (t *postgresTable) buildQuery(q Query) (string, []any, error) {
	var sb strings.Builder

	sb.WriteString(`SELECT partition_key, row_key, properties FROM table_entities WHERE table_name = $1`)

	args := []any{t.name}

	if q.Partition != "" {
		args = append(args, q.Partition)
		fmt.Fprintf(&sb, ` AND partition_key = $%d`, len(args))
	}

	if len(q.Equals) > 0 {
		equals, err := json.Marshal(q.Equals)
		if err != nil {
			return "", nil, err
		}

		args = append(args, string(equals))
		fmt.Fprintf(&sb, ` AND properties @> $%d::jsonb`, len(args))
	}

	sb.WriteString(` ORDER BY partition_key, row_key`)

	return sb.String(), args, nil
}

func encodeProperties(props Properties) (string, error) {
	if props == nil {
		return "{}", nil
	}

	raw, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("encode properties: %w", err)
	}

	return string(raw), nil
}

func decodeProperties(raw []byte) (Properties, error) {
	props := Properties{}

	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("decode properties: %w", err)
	}

	return props, nil
}

// Compile-time check.
var _ Backend = (*Postgres)(nil)
