package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"movie-catalog/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PostgresStore keeps each collection in a table of (id, doc jsonb).
type PostgresStore struct {
	db database.PgxIface
}

func NewPostgresStore(db database.PgxIface) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Collection(name string, opts ...CollectionOption) Collection {
	return &PostgresCollection{
		db:    s.db,
		name:  name,
		table: pgx.Identifier{name}.Sanitize(),
		cfg:   newCollectionConfig(opts),
	}
}

func (s *PostgresStore) Close(context.Context) error {
	s.db.Close()
	return nil
}

type PostgresCollection struct {
	db    database.PgxIface
	name  string
	table string
	cfg   collectionConfig

	mu    sync.Mutex
	ready bool
}

func (c *PostgresCollection) ensureTable(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return nil
	}
	if !identRe.MatchString(c.name) {
		return fmt.Errorf("docstore: invalid collection name %q", c.name)
	}
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, doc JSONB NOT NULL)`, c.table)
	if _, err := c.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", c.name, err)
	}
	c.ready = true
	return nil
}

func (c *PostgresCollection) InsertOne(ctx context.Context, doc any) (string, error) {
	if err := c.ensureTable(ctx); err != nil {
		return "", err
	}
	m, err := normalize(doc)
	if err != nil {
		return "", err
	}
	id, _ := m[IDField].(string)
	if id == "" {
		id = uuid.NewString()
		m[IDField] = id
	}
	body, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("docstore: encode document: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2::jsonb)`, c.table)
	if _, err := c.db.Exec(ctx, query, id, body); err != nil {
		return "", pgErr(err)
	}
	return id, nil
}

func (c *PostgresCollection) FindOne(ctx context.Context, filter Filter, dst any) error {
	if err := c.ensureTable(ctx); err != nil {
		return err
	}
	where, args, err := pgWhere(filter)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE %s LIMIT 1`, c.table, where)

	var body []byte
	if err := c.db.QueryRow(ctx, query, args...).Scan(&body); err != nil {
		return pgErr(err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("docstore: decode document: %w", err)
	}
	return nil
}

func (c *PostgresCollection) Find(ctx context.Context, filter Filter, opts FindOptions, dst any) error {
	if err := c.ensureTable(ctx); err != nil {
		return err
	}
	where, args, err := pgWhere(filter)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, `SELECT doc FROM %s WHERE %s`, c.table, where)
	orderBy, err := pgOrderBy(opts.Sort, c.cfg.timeFields)
	if err != nil {
		return err
	}
	b.WriteString(orderBy)
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	if opts.Skip > 0 {
		args = append(args, opts.Skip)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}

	rows, err := c.db.Query(ctx, b.String(), args...)
	if err != nil {
		return pgErr(err)
	}
	docs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return pgErr(err)
	}

	raw := make([]json.RawMessage, len(docs))
	for i, d := range docs {
		raw[i] = d
	}
	return decode(raw, dst)
}

func (c *PostgresCollection) UpdateOne(ctx context.Context, filter Filter, set Document, dst any) error {
	if err := c.ensureTable(ctx); err != nil {
		return err
	}
	where, args, err := pgWhere(filter)
	if err != nil {
		return err
	}
	patch := make(map[string]any, len(set))
	for k, v := range set {
		if k != IDField {
			patch[k] = v
		}
	}
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("docstore: encode update: %w", err)
	}
	args = append(args, body)
	query := fmt.Sprintf(
		`UPDATE %[1]s SET doc = doc || $%[2]d::jsonb
		WHERE id = (SELECT id FROM %[1]s WHERE %[3]s LIMIT 1)
		RETURNING doc`, c.table, len(args), where)

	var updated []byte
	if err := c.db.QueryRow(ctx, query, args...).Scan(&updated); err != nil {
		return pgErr(err)
	}
	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(updated, dst); err != nil {
		return fmt.Errorf("docstore: decode document: %w", err)
	}
	return nil
}

func (c *PostgresCollection) DeleteOne(ctx context.Context, filter Filter) error {
	if err := c.ensureTable(ctx); err != nil {
		return err
	}
	where, args, err := pgWhere(filter)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %[1]s WHERE id = (SELECT id FROM %[1]s WHERE %[2]s LIMIT 1)`, c.table, where)

	tag, err := c.db.Exec(ctx, query, args...)
	if err != nil {
		return pgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoDocuments
	}
	return nil
}

func (c *PostgresCollection) Count(ctx context.Context, filter Filter) (int64, error) {
	if err := c.ensureTable(ctx); err != nil {
		return 0, err
	}
	where, args, err := pgWhere(filter)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, c.table, where)

	var n int64
	if err := c.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, pgErr(err)
	}
	return n, nil
}

func (c *PostgresCollection) GroupCount(ctx context.Context, filter Filter, field string) ([]GroupCount, error) {
	if err := c.ensureTable(ctx); err != nil {
		return nil, err
	}
	if !identRe.MatchString(field) {
		return nil, fmt.Errorf("docstore: invalid group field %q", field)
	}
	where, args, err := pgWhere(filter)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(
		`SELECT (doc->>'%[1]s')::numeric::bigint AS key, COUNT(*)
		FROM %[2]s
		WHERE %[3]s AND jsonb_typeof(doc->'%[1]s') = 'number'
		GROUP BY key
		ORDER BY key`, field, c.table, where)

	rows, err := c.db.Query(ctx, query, args...)
	if err != nil {
		return nil, pgErr(err)
	}
	defer rows.Close()

	var out []GroupCount
	for rows.Next() {
		var g GroupCount
		if err := rows.Scan(&g.Key, &g.Count); err != nil {
			return nil, fmt.Errorf("scan group row: %w", err)
		}
		out = append(out, g)
	}
	return out, pgErr(rows.Err())
}

func (c *PostgresCollection) EnsureIndex(ctx context.Context, spec IndexSpec) error {
	if err := c.ensureTable(ctx); err != nil {
		return err
	}
	if !identRe.MatchString(spec.Name) {
		return fmt.Errorf("docstore: invalid index name %q", spec.Name)
	}
	exprs := make([]string, 0, len(spec.Keys))
	for _, k := range spec.Keys {
		if !identRe.MatchString(k.Field) {
			return fmt.Errorf("docstore: invalid index field %q", k.Field)
		}
		expr := fmt.Sprintf("(doc->>'%s')", k.Field)
		if k.Order == Descending {
			expr += " DESC"
		}
		exprs = append(exprs, expr)
	}
	unique := ""
	if spec.Unique {
		unique = "UNIQUE "
	}
	query := fmt.Sprintf(`CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)`,
		unique, pgx.Identifier{spec.Name}.Sanitize(), c.table, strings.Join(exprs, ", "))
	if _, err := c.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create index %s: %w", spec.Name, pgErr(err))
	}
	return nil
}

// pgOrderBy renders an ORDER BY clause in which nulls sort lowest, matching
// the other backends.
func pgOrderBy(sort []SortField, timeFields map[string]bool) (string, error) {
	if len(sort) == 0 {
		return "", nil
	}
	order := make([]string, 0, len(sort))
	for _, s := range sort {
		if !identRe.MatchString(s.Field) {
			return "", fmt.Errorf("docstore: invalid sort field %q", s.Field)
		}
		expr := fmt.Sprintf("doc->'%s'", s.Field)
		if timeFields[s.Field] {
			expr = fmt.Sprintf("(doc->>'%s')::timestamptz", s.Field)
		}
		if s.Order == Descending {
			order = append(order, expr+" DESC NULLS LAST")
		} else {
			order = append(order, expr+" ASC NULLS FIRST")
		}
	}
	return " ORDER BY " + strings.Join(order, ", "), nil
}

// pgWhere turns an equality filter into a predicate: _id hits the primary
// key, everything else is a jsonb containment match.
func pgWhere(f Filter) (string, []any, error) {
	var (
		clauses []string
		args    []any
	)
	rest := make(map[string]any, len(f))
	for k, v := range f {
		if k == IDField {
			args = append(args, fmt.Sprint(v))
			clauses = append(clauses, fmt.Sprintf("id = $%d", len(args)))
			continue
		}
		rest[k] = v
	}
	if len(rest) > 0 {
		body, err := json.Marshal(rest)
		if err != nil {
			return "", nil, fmt.Errorf("docstore: encode filter: %w", err)
		}
		args = append(args, body)
		clauses = append(clauses, fmt.Sprintf("doc @> $%d::jsonb", len(args)))
	}
	if len(clauses) == 0 {
		return "TRUE", nil, nil
	}
	return strings.Join(clauses, " AND "), args, nil
}

func pgErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoDocuments
	}
	var pgE *pgconn.PgError
	if errors.As(err, &pgE) && pgE.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, pgE.ConstraintName)
	}
	return err
}
