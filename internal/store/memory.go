package store

import (
	"context"
	"fmt"
	"sync"
)

// Write is one recorded Set call.
type Write struct {
	Key   string
	Value any
	Scope *ScopeID
}

// Memory is an in-process ConfigStore and ScopeSource. Scoped reads fall back
// to the global value when the scope has no own entry, matching the SQL store.
type Memory struct {
	mu      sync.RWMutex
	global  map[string]any
	scoped  map[ScopeID]map[string]any
	records []ScopeRecord
	writes  []Write

	failWrites map[string]error
	listErr    error
}

func NewMemory() *Memory {
	return &Memory{
		global:     make(map[string]any),
		scoped:     make(map[ScopeID]map[string]any),
		failWrites: make(map[string]error),
	}
}

// AddScope registers a live scope and its translated names in listing order.
func (m *Memory) AddScope(id ScopeID, names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, ScopeRecord{ID: id, Names: append([]string(nil), names...)})
}

// Seed stores a value without recording it as a write.
func (m *Memory) Seed(key string, value any, scope *ScopeID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(key, value, scope)
}

// FailWrite makes every Set for key return err.
func (m *Memory) FailWrite(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites[key] = err
}

// FailList makes ListScopesWithTranslations return err.
func (m *Memory) FailList(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
}

// Writes returns every successful Set in call order.
func (m *Memory) Writes() []Write {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Write, len(m.writes))
	copy(out, m.writes)
	return out
}

func (m *Memory) Get(_ context.Context, key string, scope *ScopeID) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if scope != nil {
		if values, ok := m.scoped[*scope]; ok {
			if v, ok := values[key]; ok {
				return v, nil
			}
		}
	}
	return m.global[key], nil
}

func (m *Memory) Set(_ context.Context, key string, value any, scope *ScopeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failWrites[key]; ok {
		return fmt.Errorf("%w: key=%q scope=%s: %v", ErrWrite, key, scopeLabel(scope), err)
	}
	m.put(key, value, scope)
	var scopeCopy *ScopeID
	if scope != nil {
		scopeCopy = Scope(*scope)
	}
	m.writes = append(m.writes, Write{Key: key, Value: value, Scope: scopeCopy})
	return nil
}

func (m *Memory) ListScopesWithTranslations(_ context.Context) ([]ScopeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]ScopeRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, ScopeRecord{ID: rec.ID, Names: append([]string(nil), rec.Names...)})
	}
	return out, nil
}

func (m *Memory) put(key string, value any, scope *ScopeID) {
	if scope == nil {
		if value == nil {
			delete(m.global, key)
			return
		}
		m.global[key] = value
		return
	}
	values, ok := m.scoped[*scope]
	if !ok {
		values = make(map[string]any)
		m.scoped[*scope] = values
	}
	if value == nil {
		delete(values, key)
		return
	}
	values[key] = value
}
