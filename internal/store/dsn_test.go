package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDSN(t *testing.T) {
	driver, dsn, err := ParseDSN("mysql://app:secret@db:3306/shopware")
	require.NoError(t, err)
	require.Equal(t, DriverMySQL, driver)
	require.Regexp(t, `^app:secret@tcp\(db:3306\)/shopware`, dsn)
	require.Contains(t, dsn, "parseTime=true")
	require.Contains(t, dsn, "clientFoundRows=true")

	_, dsn, err = ParseDSN("mysql://app@db/shopware")
	require.NoError(t, err)
	require.Regexp(t, `^app@tcp\(db:3306\)/shopware`, dsn, "expected default port")

	driver, dsn, err = ParseDSN("postgres://app:secret@db/shop?sslmode=disable")
	require.NoError(t, err)
	require.Equal(t, DriverPostgres, driver)
	require.Equal(t, "postgres://app:secret@db/shop?sslmode=disable", dsn)

	driver, dsn, err = ParseDSN("sqlite://var/shop.db")
	require.NoError(t, err)
	require.Equal(t, DriverSQLite, driver)
	require.Equal(t, "var/shop.db", dsn)

	driver, dsn, err = ParseDSN("sqlite::memory:")
	require.NoError(t, err)
	require.Equal(t, DriverSQLite, driver)
	require.Equal(t, ":memory:", dsn)
}

func TestParseDSNRejects(t *testing.T) {
	_, _, err := ParseDSN("")
	require.ErrorIs(t, err, ErrInvalidDSN)

	_, _, err = ParseDSN("redis://cache:6379")
	require.ErrorIs(t, err, ErrUnsupportedDriver)

	_, _, err = ParseDSN("mysql://app@db:3306/")
	require.ErrorIs(t, err, ErrInvalidDSN, "missing db name")
}
