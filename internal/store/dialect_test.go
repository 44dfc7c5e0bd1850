package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

// openBinaryIDSQL runs the MySQL dialect over SQLite, which has HEX and UNHEX
// too, so the BINARY(16) id handling is exercised end to end.
func openBinaryIDSQL(t *testing.T) *SQL {
	t.Helper()
	db, err := sql.Open(string(DriverSQLite), ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s := NewSQL(db, DriverMySQL, WithClock(steppingClock()))
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLBinaryIDsStoreSixteenBytes(t *testing.T) {
	ctx := context.Background()
	s := openBinaryIDSQL(t)

	const channel = "0189C5A2F3B47E1A9D2C3B4A5F6E7D8C"
	const channelHex = "0189c5a2f3b47e1a9d2c3b4a5f6e7d8c"
	require.NoError(t, s.AddSalesChannel(ctx, channel, "Shop A", "Laden A"))

	records, err := s.ListScopesWithTranslations(ctx)
	require.NoError(t, err)
	require.Equal(t, []ScopeRecord{{ID: channelHex, Names: []string{"Shop A", "Laden A"}}}, records)

	require.NoError(t, s.Set(ctx, "core.basicInformation.shopName", "Demo", nil))
	require.NoError(t, s.Set(ctx, "core.basicInformation.shopName", "Demo A", Scope(channelHex)))

	rows, err := s.db.QueryContext(ctx, `SELECT LENGTH(id), LOWER(HEX(sales_channel_id)) FROM system_config ORDER BY created_at`)
	require.NoError(t, err)
	defer rows.Close()
	var scopes []sql.NullString
	for rows.Next() {
		var idLen int
		var scope sql.NullString
		require.NoError(t, rows.Scan(&idLen, &scope))
		require.Equal(t, 16, idLen)
		scopes = append(scopes, scope)
	}
	require.NoError(t, rows.Err())
	require.Len(t, scopes, 2)
	require.False(t, scopes[0].Valid && scopes[0].String != "")
	require.Equal(t, channelHex, scopes[1].String)

	s.cache.Purge()
	got, err := s.Get(ctx, "core.basicInformation.shopName", Scope(channelHex))
	require.NoError(t, err)
	require.Equal(t, "Demo A", got)

	got, err = s.Get(ctx, "core.basicInformation.shopName", nil)
	require.NoError(t, err)
	require.Equal(t, "Demo", got)
}

func TestSQLBinaryIDsUpdateMatchesHexScope(t *testing.T) {
	ctx := context.Background()
	s := openBinaryIDSQL(t)
	const channelHex = "0189c5a2f3b47e1a9d2c3b4a5f6e7d8c"
	require.NoError(t, s.AddSalesChannel(ctx, channelHex, "Shop A"))

	require.NoError(t, s.Set(ctx, "core.a", "1", Scope(channelHex)))
	require.NoError(t, s.Set(ctx, "core.a", "2", Scope(channelHex)))

	var count int
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM system_config WHERE configuration_key = 'core.a'`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestSQLBinaryIDsRejectNonUUIDScope(t *testing.T) {
	ctx := context.Background()
	s := openBinaryIDSQL(t)

	err := s.Set(ctx, "core.a", "1", Scope("id7"))
	require.ErrorIs(t, err, ErrWrite)
	require.ErrorIs(t, err, ErrInvalidID)

	_, err = s.Get(ctx, "core.a", Scope("id7"))
	require.ErrorIs(t, err, ErrRead)
	require.ErrorIs(t, err, ErrInvalidID)

	require.ErrorIs(t, s.AddSalesChannel(ctx, "id7", "Shop"), ErrInvalidID)
}

func TestSQLTextIDsPassThrough(t *testing.T) {
	s := &SQL{driver: DriverSQLite}
	id, err := s.bindID("id7")
	require.NoError(t, err)
	require.Equal(t, "id7", id)
	require.Equal(t, "sc.id", s.idColumn("sc.id"))
	require.Equal(t, "?", s.idParam())

	s.driver = DriverMySQL
	require.Equal(t, "LOWER(HEX(sc.id))", s.idColumn("sc.id"))
	require.Equal(t, "UNHEX(?)", s.idParam())
}

func TestCanonicalHexID(t *testing.T) {
	got, err := CanonicalHexID("0189C5A2-F3B4-7E1A-9D2C-3B4A5F6E7D8C")
	require.NoError(t, err)
	require.Equal(t, "0189c5a2f3b47e1a9d2c3b4a5f6e7d8c", got)

	_, err = CanonicalHexID("not-an-id")
	require.ErrorIs(t, err, ErrInvalidID)

	fresh := newHexID()
	require.Len(t, fresh, 32)
	canonical, err := CanonicalHexID(fresh)
	require.NoError(t, err)
	require.Equal(t, fresh, canonical)
}
