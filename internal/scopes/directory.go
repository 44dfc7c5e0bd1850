// Package scopes resolves the live sales channel scopes by every translated
// name they carry.
package scopes

import (
	"context"
	"errors"
	"fmt"

	"github.com/danmuck/storesync/internal/store"
	"github.com/rs/zerolog/log"
)

var ErrScopeSourceUnavailable = errors.New("scopes: scope source unavailable")

// Entry maps one translated name onto its scope.
type Entry struct {
	Name string
	ID   store.ScopeID
}

// Directory is the flattened name -> scope mapping in source order. Names are
// unique; a later translation with the same name overwrites the id but keeps
// the first position.
type Directory struct {
	entries []Entry
	index   map[string]int
}

// Entries returns the mapping in source order.
func (d Directory) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Lookup returns the scope id registered under name.
func (d Directory) Lookup(name string) (store.ScopeID, bool) {
	pos, ok := d.index[name]
	if !ok {
		return "", false
	}
	return d.entries[pos].ID, true
}

func (d Directory) Len() int {
	return len(d.entries)
}

func (d *Directory) put(name string, id store.ScopeID) {
	if d.index == nil {
		d.index = make(map[string]int)
	}
	if pos, ok := d.index[name]; ok {
		d.entries[pos].ID = id
		return
	}
	d.index[name] = len(d.entries)
	d.entries = append(d.entries, Entry{Name: name, ID: id})
}

// Resolver reads scopes from a ScopeSource.
type Resolver struct {
	source store.ScopeSource
}

func NewResolver(source store.ScopeSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve fetches every scope with its translations and flattens them into
// one name -> id directory.
func (r *Resolver) Resolve(ctx context.Context) (Directory, error) {
	records, err := r.source.ListScopesWithTranslations(ctx)
	if err != nil {
		return Directory{}, fmt.Errorf("%w: %v", ErrScopeSourceUnavailable, err)
	}
	var dir Directory
	for _, rec := range records {
		for _, name := range rec.Names {
			if name == "" {
				continue
			}
			dir.put(name, rec.ID)
		}
	}
	log.Debug().Int("scopes", len(records)).Int("names", dir.Len()).Msg("scopes.resolve")
	return dir, nil
}
