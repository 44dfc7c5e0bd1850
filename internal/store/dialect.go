package store

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// The shop keeps ids as BINARY(16) on MySQL. Outside of SQL, ids are always
// the 32-char lowercase hex form, so the MySQL dialect converts at the column:
// HEX on the way out, UNHEX on the way in. The other backends store the hex
// form as text.

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS sales_channel (
		id BINARY(16) NOT NULL PRIMARY KEY,
		created_at DATETIME(3) NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sales_channel_translation (
		sales_channel_id BINARY(16) NOT NULL,
		language_id BINARY(16) NOT NULL,
		name VARCHAR(255) NULL,
		PRIMARY KEY (sales_channel_id, language_id)
	)`,
	`CREATE TABLE IF NOT EXISTS system_config (
		id BINARY(16) NOT NULL PRIMARY KEY,
		configuration_key VARCHAR(255) NOT NULL,
		configuration_value JSON NOT NULL,
		sales_channel_id BINARY(16) NULL,
		created_at DATETIME(3) NULL,
		updated_at DATETIME(3) NULL
	)`,
}

var textSchema = []string{
	`CREATE TABLE IF NOT EXISTS sales_channel (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		created_at TIMESTAMP NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sales_channel_translation (
		sales_channel_id VARCHAR(64) NOT NULL,
		language_id VARCHAR(64) NOT NULL,
		name VARCHAR(255) NULL,
		PRIMARY KEY (sales_channel_id, language_id)
	)`,
	`CREATE TABLE IF NOT EXISTS system_config (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		configuration_key VARCHAR(255) NOT NULL,
		configuration_value TEXT NOT NULL,
		sales_channel_id VARCHAR(64) NULL,
		created_at TIMESTAMP NULL,
		updated_at TIMESTAMP NULL
	)`,
}

func (s *SQL) binaryIDs() bool {
	return s.driver == DriverMySQL
}

func (s *SQL) schema() []string {
	if s.binaryIDs() {
		return mysqlSchema
	}
	return textSchema
}

// idColumn renders an id column as hex text.
func (s *SQL) idColumn(col string) string {
	if s.binaryIDs() {
		return "LOWER(HEX(" + col + "))"
	}
	return col
}

// idParam is the placeholder for an id argument prepared by bindID.
func (s *SQL) idParam() string {
	if s.binaryIDs() {
		return "UNHEX(?)"
	}
	return "?"
}

// bindID prepares an id argument. Binary ids must be 16 bytes of hex; UNHEX
// turns anything else into NULL.
func (s *SQL) bindID(id string) (string, error) {
	if !s.binaryIDs() {
		return id, nil
	}
	return CanonicalHexID(id)
}

// CanonicalHexID normalizes a uuid in any of its textual forms to 32 lowercase
// hex characters.
func CanonicalHexID(raw string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidID, raw, err)
	}
	return hex.EncodeToString(u[:]), nil
}

func (s *SQL) scopeClause(scope *ScopeID) (string, []any, error) {
	if scope == nil {
		return "sales_channel_id IS NULL", nil, nil
	}
	id, err := s.bindID(string(*scope))
	if err != nil {
		return "", nil, err
	}
	return "sales_channel_id = " + s.idParam(), []any{id}, nil
}

// rebind rewrites ? placeholders into $n for the postgres driver.
func (s *SQL) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func newHexID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}
