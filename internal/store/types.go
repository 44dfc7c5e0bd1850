package store

import (
	"context"
	"errors"
)

var (
	ErrWrite             = errors.New("store: write failed")
	ErrRead              = errors.New("store: read failed")
	ErrUnsupportedDriver = errors.New("store: unsupported driver")
	ErrInvalidDSN        = errors.New("store: invalid dsn")
	ErrInvalidID         = errors.New("store: invalid id")
)

// ScopeID identifies one sales channel scope. A nil *ScopeID addresses the
// global scope.
type ScopeID string

func (id ScopeID) String() string {
	return string(id)
}

// Scope returns a pointer suitable for the scoped store calls.
func Scope(id ScopeID) *ScopeID {
	return &id
}

// ScopeRecord is one live scope with every translated name it carries.
type ScopeRecord struct {
	ID    ScopeID
	Names []string
}

// ConfigStore reads and writes configuration values per scope.
type ConfigStore interface {
	Get(ctx context.Context, key string, scope *ScopeID) (any, error)
	Set(ctx context.Context, key string, value any, scope *ScopeID) error
}

// ScopeSource lists the live scopes together with their translations.
type ScopeSource interface {
	ListScopesWithTranslations(ctx context.Context) ([]ScopeRecord, error)
}

func scopeLabel(scope *ScopeID) string {
	if scope == nil {
		return "global"
	}
	return string(*scope)
}
