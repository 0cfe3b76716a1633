package sidecar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// UpdateJSON rewrites a signature sidecar's top-level keys and SURI values.
// Output uses sorted keys and two-space indent; untouched input is returned
// byte for byte.
func UpdateJSON(content []byte, u Update) ([]byte, bool, error) {
	var top map[string]any
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	if err := dec.Decode(&top); err != nil {
		return nil, false, fmt.Errorf("parse json sidecar: %w", err)
	}
	if top == nil {
		return content, false, nil
	}

	changed := false
	out := make(map[string]any, len(top))
	from := make(map[string]string, len(top))
	keys := make([]string, 0, len(top))
	for k := range top {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, vChanged := rewriteValueSURIs(top[k], u)
		nk, kChanged := u.RenameKey(k)
		if !kChanged {
			nk, kChanged = u.RewriteSURI(k)
		}
		if _, dup := out[nk]; dup {
			return nil, false, keyCollision(from[nk], k, nk)
		}
		out[nk] = v
		from[nk] = k
		changed = changed || vChanged || kChanged
	}
	if !changed {
		return content, false, nil
	}
	data, err := encodeJSON(out)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func rewriteValueSURIs(v any, u Update) (any, bool) {
	switch t := v.(type) {
	case string:
		return u.RewriteSURI(t)
	case []any:
		changed := false
		for i := range t {
			var c bool
			t[i], c = rewriteValueSURIs(t[i], u)
			changed = changed || c
		}
		return t, changed
	case map[string]any:
		changed := false
		for k := range t {
			var c bool
			t[k], c = rewriteValueSURIs(t[k], u)
			changed = changed || c
		}
		return t, changed
	}
	return v, false
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", jsonIndent)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode json sidecar: %w", err)
	}
	return buf.Bytes(), nil
}
