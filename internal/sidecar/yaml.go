package sidecar

import (
	"bytes"
	"fmt"

	"github.com/0x5457/stitcher/internal/errs"
	"gopkg.in/yaml.v3"
)

// UpdateYAML rewrites a document sidecar. Key order, styles and comments
// survive because the document is edited as a yaml.Node tree. Content that
// is not a mapping, or that the update does not touch, is returned as is.
func UpdateYAML(content []byte, u Update) ([]byte, bool, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, false, fmt.Errorf("parse yaml sidecar: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return content, false, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return content, false, nil
	}

	renamed := map[int]string{}
	seen := map[string]string{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i]
		if key.Kind != yaml.ScalarNode {
			continue
		}
		final := key.Value
		if n, ok := u.RenameKey(key.Value); ok {
			renamed[i] = n
			final = n
		}
		if prev, dup := seen[final]; dup && (prev != final || key.Value != final) {
			return nil, false, keyCollision(prev, key.Value, final)
		}
		seen[final] = key.Value
	}

	changed := len(renamed) > 0
	for i := 0; i+1 < len(root.Content); i += 2 {
		if n, ok := renamed[i]; ok {
			root.Content[i].Value = n
		}
		if rewriteNodeSURIs(root.Content[i+1], u) {
			changed = true
		}
	}
	if !changed {
		return content, false, nil
	}

	out, err := encodeYAML(&doc)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// keyCollision reports two source keys that would land on the same key.
func keyCollision(a, b, key string) *errs.Error {
	src := a
	if a == key {
		src = b
	}
	e := errs.IntentConflict("renaming sidecar key %q onto existing key %q", src, key)
	e.FQN = key
	return e
}

func rewriteNodeSURIs(n *yaml.Node, u Update) bool {
	switch n.Kind {
	case yaml.ScalarNode:
		if v, ok := u.RewriteSURI(n.Value); ok {
			n.Value = v
			return true
		}
	case yaml.MappingNode, yaml.SequenceNode, yaml.DocumentNode:
		changed := false
		for _, c := range n.Content {
			if rewriteNodeSURIs(c, u) {
				changed = true
			}
		}
		return changed
	}
	return false
}

func encodeYAML(n *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(yamlIndentLen)
	if err := enc.Encode(n); err != nil {
		return nil, fmt.Errorf("encode yaml sidecar: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Keys lists the top-level keys of a mapping document in order.
func Keys(content []byte) ([]string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, nil
	}
	root := doc.Content[0]
	keys := make([]string, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keys = append(keys, root.Content[i].Value)
	}
	return keys, nil
}
