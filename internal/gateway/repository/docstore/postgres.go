package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var tableNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

const uniqueViolation = "23505"

// PostgresDB stores each collection as a table of JSONB documents keyed by the
// natural key. Updates run inside a transaction holding a row lock.
type PostgresDB struct {
	db *sql.DB

	mu     sync.Mutex
	tables map[string]*postgresCollection
}

func NewPostgres(ctx context.Context, dsn string) (*PostgresDB, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return NewPostgresFromDB(db), nil
}

func NewPostgresFromDB(db *sql.DB) *PostgresDB {
	return &PostgresDB{db: db, tables: make(map[string]*postgresCollection)}
}

func (p *PostgresDB) Collection(ctx context.Context, name, keyField string) (Collection, error) {
	if p == nil || p.db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	name = strings.TrimSpace(name)
	keyField = strings.TrimSpace(keyField)
	if !tableNamePattern.MatchString(name) {
		return nil, fmt.Errorf("invalid collection name %q", name)
	}
	if keyField == "" {
		return nil, fmt.Errorf("key field is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.tables[name]; ok {
		return c, nil
	}
	c := &postgresCollection{
		db:       p.db,
		name:     name,
		table:    "docs_" + name,
		keyField: keyField,
	}
	if err := c.ensureSchema(ctx); err != nil {
		return nil, err
	}
	p.tables[name] = c
	return c, nil
}

func (p *PostgresDB) Close(context.Context) error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

type postgresCollection struct {
	db       *sql.DB
	name     string
	table    string
	keyField string
}

func (c *postgresCollection) Name() string     { return c.name }
func (c *postgresCollection) KeyField() string { return c.keyField }

func (c *postgresCollection) ensureSchema(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
  doc_key TEXT PRIMARY KEY,
  body JSONB NOT NULL,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_body ON %[1]s USING GIN (body jsonb_path_ops);
`, c.table))
	if err != nil {
		return fmt.Errorf("ensure table %s: %w", c.table, err)
	}
	return nil
}

func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.Postgres)
}

// where turns an exact-match filter into a JSONB containment predicate.
func where(s *entsql.Selector, filter Filter) (*entsql.Selector, error) {
	if len(filter) == 0 {
		return s, nil
	}
	d := document{}
	for path, v := range filter {
		nv, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", path, err)
		}
		if err := d.set(path, nv); err != nil {
			return nil, err
		}
	}
	raw, err := encode(d)
	if err != nil {
		return nil, err
	}
	return s.Where(entsql.P(func(b *entsql.Builder) {
		b.Ident("body").WriteString(" @> ").Arg(string(raw)).WriteString("::jsonb")
	})), nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (c *postgresCollection) selectRows(ctx context.Context, q queryer, filter Filter, limit int, lock bool) ([]string, [][]byte, error) {
	s := builder().Select("doc_key", "body").From(entsql.Table(c.table))
	s, err := where(s, filter)
	if err != nil {
		return nil, nil, err
	}
	s.OrderBy("doc_key")
	if limit > 0 {
		s.Limit(limit)
	}
	if lock {
		s.ForUpdate()
	}
	query, args := s.Query()
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var (
		keys []string
		raws [][]byte
	)
	for rows.Next() {
		var (
			key string
			raw []byte
		)
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		raws = append(raws, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return keys, raws, nil
}

func (c *postgresCollection) FindOne(ctx context.Context, filter Filter, out any) error {
	_, raws, err := c.selectRows(ctx, c.db, filter, 1, false)
	if err != nil {
		return err
	}
	if len(raws) == 0 {
		return ErrNotFound
	}
	return decodeInto(raws[0], out)
}

func (c *postgresCollection) InsertOne(ctx context.Context, doc any) error {
	d, err := toDocument(doc)
	if err != nil {
		return err
	}
	key, err := d.keyValue(c.keyField)
	if err != nil {
		return err
	}
	raw, err := encode(d)
	if err != nil {
		return err
	}
	query, args := builder().Insert(c.table).
		Columns("doc_key", "body", "updated_at").
		Values(key, string(raw), time.Now().UTC()).
		Query()
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s %q", ErrDuplicateKey, c.name, key)
		}
		return err
	}
	return nil
}

func (c *postgresCollection) FindOneAndUpdate(ctx context.Context, filter Filter, update Update, out any) error {
	if touchesKey(c.keyField, update) {
		return ErrImmutableKey
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	keys, raws, err := c.selectRows(ctx, tx, filter, 1, true)
	if err != nil {
		return err
	}
	if len(raws) == 0 {
		return ErrNotFound
	}
	d, err := parseDocument(raws[0])
	if err != nil {
		return err
	}
	if err := d.apply(update); err != nil {
		return err
	}
	raw, err := encode(d)
	if err != nil {
		return err
	}
	query, args := builder().Update(c.table).
		Set("body", string(raw)).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.EQ("doc_key", keys[0])).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return decodeInto(raw, out)
}

func (c *postgresCollection) DeleteOne(ctx context.Context, filter Filter) error {
	key, ok := keyLookup(c.keyField, filter)
	if !ok {
		keys, _, err := c.selectRows(ctx, c.db, filter, 1, false)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return ErrNotFound
		}
		key = keys[0]
	}
	query, args := builder().Delete(c.table).Where(entsql.EQ("doc_key", key)).Query()
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *postgresCollection) Find(ctx context.Context, filter Filter, out any) error {
	_, raws, err := c.selectRows(ctx, c.db, filter, 0, false)
	if err != nil {
		return err
	}
	return decodeAll(raws, out)
}
