package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const defaultCacheSize = 1024

// SQL is a ConfigStore and ScopeSource over the shop database. Values are
// stored as JSON documents of the form {"_value": ...}. Scoped reads without
// an own row inherit the global value.
type SQL struct {
	db     *sql.DB
	driver Driver
	cache  *lru.Cache[string, any]
	now    func() time.Time
	newID  func() string
}

type SQLOption func(*SQL)

// WithCacheSize bounds the read-through value cache.
func WithCacheSize(n int) SQLOption {
	return func(s *SQL) {
		if n <= 0 {
			return
		}
		if cache, err := lru.New[string, any](n); err == nil {
			s.cache = cache
		}
	}
}

// WithClock overrides the timestamp source for created_at/updated_at.
func WithClock(now func() time.Time) SQLOption {
	return func(s *SQL) {
		if now != nil {
			s.now = now
		}
	}
}

// Open parses a DATABASE_URL style dsn, connects and pings the database.
func Open(ctx context.Context, rawDSN string, opts ...SQLOption) (*SQL, error) {
	driver, dsn, err := ParseDSN(rawDSN)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// :memory: databases are per connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", driver, err)
	}
	return NewSQL(db, driver, opts...), nil
}

// NewSQL wraps an open handle.
func NewSQL(db *sql.DB, driver Driver, opts ...SQLOption) *SQL {
	cache, _ := lru.New[string, any](defaultCacheSize)
	s := &SQL{
		db:     db,
		driver: driver,
		cache:  cache,
		now:    time.Now,
		newID:  newHexID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SQL) Close() error {
	return s.db.Close()
}

// Driver reports the backend in use.
func (s *SQL) Driver() Driver {
	return s.driver
}

// Migrate creates the tables the store reads and writes.
func (s *SQL) Migrate(ctx context.Context) error {
	for _, stmt := range s.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// AddSalesChannel inserts a scope with one translation row per name.
func (s *SQL) AddSalesChannel(ctx context.Context, id ScopeID, names ...string) error {
	bound, err := s.bindID(string(id))
	if err != nil {
		return fmt.Errorf("%w: sales_channel: %w", ErrWrite, err)
	}
	now := s.now().UTC()
	if _, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO sales_channel (id, created_at) VALUES (`+s.idParam()+`, ?)`),
		bound, now,
	); err != nil {
		return fmt.Errorf("%w: sales_channel %s: %v", ErrWrite, id, err)
	}
	for i, name := range names {
		languageID := fmt.Sprintf("%s%04d", strings.Repeat("0", 28), i+1)
		if _, err := s.db.ExecContext(ctx,
			s.rebind(`INSERT INTO sales_channel_translation (sales_channel_id, language_id, name) VALUES (`+
				s.idParam()+`, `+s.idParam()+`, ?)`),
			bound, languageID, name,
		); err != nil {
			return fmt.Errorf("%w: sales_channel_translation %s: %v", ErrWrite, id, err)
		}
	}
	return nil
}

// ListScopesWithTranslations returns every sales channel in creation order
// with its names ordered by language. Ids come back as hex on every backend.
func (s *SQL) ListScopesWithTranslations(ctx context.Context) ([]ScopeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+s.idColumn("sc.id")+`, t.name
		FROM sales_channel sc
		LEFT JOIN sales_channel_translation t ON t.sales_channel_id = sc.id
		ORDER BY sc.created_at, sc.id, t.language_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list sales channels: %v", ErrRead, err)
	}
	defer rows.Close()

	var out []ScopeRecord
	index := make(map[ScopeID]int)
	for rows.Next() {
		var id string
		var name sql.NullString
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("%w: scan sales channel: %v", ErrRead, err)
		}
		pos, ok := index[ScopeID(id)]
		if !ok {
			pos = len(out)
			index[ScopeID(id)] = pos
			out = append(out, ScopeRecord{ID: ScopeID(id)})
		}
		if name.Valid {
			out[pos].Names = append(out[pos].Names, name.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list sales channels: %v", ErrRead, err)
	}
	return out, nil
}

func (s *SQL) Get(ctx context.Context, key string, scope *ScopeID) (any, error) {
	ck := cacheKey(key, scope)
	if v, ok := s.cache.Get(ck); ok {
		return v, nil
	}

	v, found, err := s.lookup(ctx, key, scope)
	if err != nil {
		return nil, err
	}
	if !found && scope != nil {
		v, _, err = s.lookup(ctx, key, nil)
		if err != nil {
			return nil, err
		}
	}
	s.cache.Add(ck, v)
	return v, nil
}

func (s *SQL) Set(ctx context.Context, key string, value any, scope *ScopeID) error {
	if value == nil {
		if err := s.delete(ctx, key, scope); err != nil {
			return err
		}
		s.invalidate(key, scope)
		return nil
	}

	encoded, err := encodeValue(value)
	if err != nil {
		return fmt.Errorf("%w: key=%q scope=%s: %v", ErrWrite, key, scopeLabel(scope), err)
	}
	now := s.now().UTC()

	where, args, err := s.scopeClause(scope)
	if err != nil {
		return fmt.Errorf("%w: key=%q: %w", ErrWrite, key, err)
	}
	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE system_config SET configuration_value = ?, updated_at = ? WHERE configuration_key = ? AND `+where),
		append([]any{encoded, now, key}, args...)...,
	)
	if err != nil {
		return fmt.Errorf("%w: key=%q scope=%s: %v", ErrWrite, key, scopeLabel(scope), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: key=%q scope=%s: %v", ErrWrite, key, scopeLabel(scope), err)
	}
	if affected == 0 {
		scopeParam, scopeArg := "NULL", []any{}
		if scope != nil {
			scopeParam, scopeArg = s.idParam(), args
		}
		insertArgs := append([]any{s.newID(), key, encoded}, scopeArg...)
		insertArgs = append(insertArgs, now)
		if _, err := s.db.ExecContext(ctx,
			s.rebind(`INSERT INTO system_config (id, configuration_key, configuration_value, sales_channel_id, created_at) VALUES (`+
				s.idParam()+`, ?, ?, `+scopeParam+`, ?)`),
			insertArgs...,
		); err != nil {
			return fmt.Errorf("%w: key=%q scope=%s: %v", ErrWrite, key, scopeLabel(scope), err)
		}
	}
	log.Debug().Str("key", key).Str("scope", scopeLabel(scope)).Msg("store.sql set")

	s.invalidate(key, scope)
	s.cache.Add(cacheKey(key, scope), value)
	return nil
}

func (s *SQL) lookup(ctx context.Context, key string, scope *ScopeID) (any, bool, error) {
	where, args, err := s.scopeClause(scope)
	if err != nil {
		return nil, false, fmt.Errorf("%w: key=%q: %w", ErrRead, key, err)
	}
	var raw string
	err = s.db.QueryRowContext(ctx,
		s.rebind(`SELECT configuration_value FROM system_config WHERE configuration_key = ? AND `+where+` LIMIT 1`),
		append([]any{key}, args...)...,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: key=%q scope=%s: %v", ErrRead, key, scopeLabel(scope), err)
	}
	v, err := decodeValue(raw)
	if err != nil {
		return nil, false, fmt.Errorf("%w: key=%q scope=%s: %v", ErrRead, key, scopeLabel(scope), err)
	}
	return v, true, nil
}

func (s *SQL) delete(ctx context.Context, key string, scope *ScopeID) error {
	where, args, err := s.scopeClause(scope)
	if err != nil {
		return fmt.Errorf("%w: key=%q: %w", ErrWrite, key, err)
	}
	if _, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM system_config WHERE configuration_key = ? AND `+where),
		append([]any{key}, args...)...,
	); err != nil {
		return fmt.Errorf("%w: key=%q scope=%s: %v", ErrWrite, key, scopeLabel(scope), err)
	}
	return nil
}

// invalidate drops cached reads a write can affect. A global write changes
// the inherited value of every scope, so the whole cache goes.
func (s *SQL) invalidate(key string, scope *ScopeID) {
	if scope == nil {
		s.cache.Purge()
		return
	}
	s.cache.Remove(cacheKey(key, scope))
}

func cacheKey(key string, scope *ScopeID) string {
	return scopeLabel(scope) + "\x00" + key
}

type storedValue struct {
	Value any `json:"_value"`
}

func encodeValue(v any) (string, error) {
	data, err := json.Marshal(storedValue{Value: v})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeValue(raw string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var sv storedValue
	if err := dec.Decode(&sv); err != nil {
		return nil, err
	}
	return normalizeJSON(sv.Value), nil
}

func normalizeJSON(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = normalizeJSON(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = normalizeJSON(item)
		}
		return out
	default:
		return v
	}
}
