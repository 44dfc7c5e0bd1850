package document

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var (
	ErrNotFound    = errors.New("document: not found")
	ErrInvalid     = errors.New("document: invalid")
	ErrUnsupported = errors.New("document: unsupported format")
)

// Load reads path and decodes it by extension: .yaml/.yml or .toml.
func Load(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("document load failed (%s): %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(data)
	case ".toml":
		return DecodeTOML(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
}

// DecodeYAML decodes a YAML mapping document keeping key order.
func DecodeYAML(data []byte) (Map, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return Map{}, nil
	}
	top := resolveAlias(root.Content[0])
	if top.Kind == yaml.ScalarNode && top.Tag == "!!null" {
		return Map{}, nil
	}
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping (line %d)", ErrInvalid, top.Line)
	}
	return yamlMapping(top)
}

func yamlMapping(n *yaml.Node) (Map, error) {
	out := Map{}
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valueNode := n.Content[i], resolveAlias(n.Content[i+1])
		if isMergeKey(keyNode) {
			merged, err := yamlMerge(valueNode)
			if err != nil {
				return nil, err
			}
			for _, node := range merged {
				if _, exists := out.Get(node.Key); !exists {
					out.set(node.Key, node.Value)
				}
			}
			continue
		}
		value, err := yamlValue(valueNode)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", keyNode.Value, err)
		}
		out.set(keyNode.Value, value)
	}
	return out, nil
}

func isMergeKey(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Value == "<<" && (n.Tag == "!!merge" || n.Tag == "")
}

func yamlMerge(n *yaml.Node) (Map, error) {
	switch n.Kind {
	case yaml.MappingNode:
		return yamlMapping(n)
	case yaml.SequenceNode:
		out := Map{}
		for _, item := range n.Content {
			m, err := yamlMerge(resolveAlias(item))
			if err != nil {
				return nil, err
			}
			for _, node := range m {
				if _, exists := out.Get(node.Key); !exists {
					out.set(node.Key, node.Value)
				}
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: merge value must be a mapping (line %d)", ErrInvalid, n.Line)
	}
}

func yamlValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.MappingNode:
		return yamlMapping(n)
	case yaml.SequenceNode, yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalid, n.Line, err)
		}
		return normalizeScalar(v), nil
	default:
		return nil, fmt.Errorf("%w: unsupported node at line %d", ErrInvalid, n.Line)
	}
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// DecodeTOML decodes a TOML document keeping key order from the metadata.
func DecodeTOML(data []byte) (Map, error) {
	var raw map[string]any
	meta, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	out := Map{}
	for _, key := range meta.Keys() {
		value, ok := lookupPath(raw, key)
		if !ok {
			continue
		}
		insertPath(&out, key, value)
	}
	return out, nil
}

func lookupPath(raw map[string]any, key toml.Key) (any, bool) {
	var cur any = raw
	for _, part := range key {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func insertPath(m *Map, key toml.Key, value any) {
	if len(key) == 0 {
		return
	}
	if len(key) == 1 {
		if _, isTable := value.(map[string]any); isTable {
			if _, exists := m.Get(key[0]); !exists {
				m.set(key[0], Map{})
			}
			return
		}
		m.set(key[0], normalizeScalar(value))
		return
	}
	childAny, exists := m.Get(key[0])
	child, isMap := childAny.(Map)
	if !exists || !isMap {
		child = Map{}
	}
	insertPath(&child, key[1:], value)
	m.set(key[0], child)
}
