// Package jsonutil compares and formats the JSON blobs stored with runs,
// such as the encoded animation parameters.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Change kinds.
const (
	KindAdd    = "add"
	KindUpdate = "update"
	KindDelete = "delete"
)

// Change is one differing leaf between two JSON objects.
type Change struct {
	Path   string `json:"path"`
	Kind   string `json:"kind"`
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`
}

// Pretty indents a JSON string for display. Invalid JSON is returned as is.
func Pretty(s string) string {
	var obj any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return s
	}
	pretty, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return s
	}
	return string(pretty)
}

// Diff compares two JSON objects and returns their differences sorted by
// path. Nested objects are compared key by key with dotted paths. An empty
// string counts as an empty object.
func Diff(before, after string) ([]Change, error) {
	a, err := object(before)
	if err != nil {
		return nil, fmt.Errorf("parsing before: %w", err)
	}
	b, err := object(after)
	if err != nil {
		return nil, fmt.Errorf("parsing after: %w", err)
	}
	return diffMaps("", a, b, nil), nil
}

func object(s string) (map[string]any, error) {
	m := make(map[string]any)
	if s == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}

func diffMaps(prefix string, a, b map[string]any, out []Change) []Change {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}

		av, inA := a[k]
		bv, inB := b[k]
		switch {
		case !inA:
			out = append(out, Change{Path: path, Kind: KindAdd, After: encode(bv)})
		case !inB:
			out = append(out, Change{Path: path, Kind: KindDelete, Before: encode(av)})
		default:
			as, bs := encode(av), encode(bv)
			if as == bs {
				continue
			}
			am, aIsMap := av.(map[string]any)
			bm, bIsMap := bv.(map[string]any)
			if aIsMap && bIsMap {
				out = diffMaps(path, am, bm, out)
			} else {
				out = append(out, Change{Path: path, Kind: KindUpdate, Before: as, After: bs})
			}
		}
	}
	return out
}

func encode(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
