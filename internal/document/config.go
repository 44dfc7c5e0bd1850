package document

import "fmt"

// GlobalScope is the reserved scope name applied without a scope id.
const GlobalScope = "global"

// Setting is one desired key/value pair.
type Setting struct {
	Key   string
	Value any
}

// Scope is the desired settings of one named scope.
type Scope struct {
	Name     string
	Settings []Setting
}

// ConfigDocument is the desired configuration, scope by scope, in document
// order.
type ConfigDocument struct {
	Scopes []Scope
}

// Lookup returns the settings for name. A scope whose value is null counts as
// not defined.
func (d ConfigDocument) Lookup(name string) ([]Setting, bool) {
	for _, s := range d.Scopes {
		if s.Name == name {
			return s.Settings, true
		}
	}
	return nil, false
}

// Names returns the defined scope names in document order.
func (d ConfigDocument) Names() []string {
	out := make([]string, 0, len(d.Scopes))
	for _, s := range d.Scopes {
		out = append(out, s.Name)
	}
	return out
}

// LoadConfig reads a config document from path.
func LoadConfig(path string) (ConfigDocument, error) {
	m, err := Load(path)
	if err != nil {
		return ConfigDocument{}, err
	}
	return ConfigFromMap(m)
}

// ConfigFromMap interprets a decoded mapping as scope -> key -> value.
func ConfigFromMap(m Map) (ConfigDocument, error) {
	doc := ConfigDocument{Scopes: make([]Scope, 0, len(m))}
	for _, node := range m {
		if node.Value == nil {
			continue
		}
		settings, ok := node.Value.(Map)
		if !ok {
			return ConfigDocument{}, fmt.Errorf("%w: scope %q must be a mapping of settings", ErrInvalid, node.Key)
		}
		scope := Scope{Name: node.Key, Settings: make([]Setting, 0, len(settings))}
		for _, s := range settings {
			scope.Settings = append(scope.Settings, Setting{Key: s.Key, Value: flatten(s.Value)})
		}
		doc.Scopes = append(doc.Scopes, scope)
	}
	return doc, nil
}

// flatten turns nested ordered maps back into plain values; setting values are
// compared by their canonical string and never walked by key order.
func flatten(v any) any {
	switch x := v.(type) {
	case Map:
		out := make(map[string]any, len(x))
		for _, n := range x {
			out[n.Key] = flatten(n.Value)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = flatten(item)
		}
		return out
	default:
		return v
	}
}

// LoadExtensions reads an extension state table from path. Interpretation of
// the table belongs to the caller.
func LoadExtensions(path string) (Map, error) {
	return Load(path)
}
