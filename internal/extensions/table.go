package extensions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/storesync/internal/document"
)

var (
	ErrInvalidState = errors.New("extensions: desired state must be true or false")
	ErrUnknownGroup = errors.New("extensions: unknown group")
	ErrMixedForm    = errors.New("extensions: table mixes grouped and flat entries")
)

// DefaultGroup names the single group of a flat table.
const DefaultGroup = "default"

// DefaultGroupOrder is the processing order of grouped tables.
var DefaultGroupOrder = []string{"core", "third-party", "agency", "project"}

// Entry is one extension and whether it should be installed and active.
type Entry struct {
	Name    string
	Enabled bool
}

// Group is a named, ordered list of entries.
type Group struct {
	Name    string
	Entries []Entry
}

// Partition splits the group into disabled and enabled names, document order.
func (g Group) Partition() (disabled, enabled []string) {
	for _, e := range g.Entries {
		if e.Enabled {
			enabled = append(enabled, e.Name)
		} else {
			disabled = append(disabled, e.Name)
		}
	}
	return disabled, enabled
}

// ParseTable reads either a flat {name: bool} table or a grouped
// {group: {name: bool}} table. Grouped tables come back in order; groups the
// document leaves out or leaves empty are skipped. An empty order selects
// DefaultGroupOrder.
func ParseTable(raw document.Map, order []string) ([]Group, error) {
	if len(order) == 0 {
		order = DefaultGroupOrder
	}

	// A key without a value (`core:` with nothing under it) declares nothing.
	defined := make(document.Map, 0, len(raw))
	for _, node := range raw {
		if node.Value != nil {
			defined = append(defined, node)
		}
	}
	raw = defined
	if len(raw) == 0 {
		return nil, nil
	}

	grouped, flat := 0, 0
	for _, node := range raw {
		switch node.Value.(type) {
		case document.Map:
			grouped++
		default:
			flat++
		}
	}
	if grouped > 0 && flat > 0 {
		return nil, ErrMixedForm
	}
	if flat > 0 {
		entries, err := parseEntries(DefaultGroup, raw)
		if err != nil {
			return nil, err
		}
		return []Group{{Name: DefaultGroup, Entries: entries}}, nil
	}

	known := make(map[string]struct{}, len(order))
	for _, name := range order {
		known[name] = struct{}{}
	}
	var unknown []string
	for _, key := range raw.Keys() {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s (order: %s)", ErrUnknownGroup, strings.Join(unknown, ", "), strings.Join(order, ", "))
	}

	groups := make([]Group, 0, len(order))
	for _, name := range order {
		v, ok := raw.Get(name)
		if !ok {
			continue
		}
		entries, err := parseEntries(name, v.(document.Map))
		if err != nil {
			return nil, err
		}
		groups = append(groups, Group{Name: name, Entries: entries})
	}
	return groups, nil
}

func parseEntries(group string, m document.Map) ([]Entry, error) {
	entries := make([]Entry, 0, len(m))
	for _, node := range m {
		if node.Value == nil {
			continue
		}
		enabled, ok := node.Value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: group=%s extension=%s value=%v", ErrInvalidState, group, node.Key, node.Value)
		}
		entries = append(entries, Entry{Name: node.Key, Enabled: enabled})
	}
	return entries, nil
}
