package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// document is the JSON form used by the memory, postgres and s3 backends.
type document map[string]any

func toDocument(v any) (document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return parseDocument(raw)
}

func parseDocument(raw []byte) (document, error) {
	var d document
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if d == nil {
		return nil, fmt.Errorf("decode document: not an object")
	}
	return d, nil
}

// normalize gives v the shape it would have after a JSON round trip, so that
// filter values compare equal to stored values.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (d document) keyValue(field string) (string, error) {
	v, ok := d[field]
	if !ok {
		return "", fmt.Errorf("document has no %q field", field)
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("document field %q must be a non-empty string", field)
	}
	return s, nil
}

func (d document) matches(f Filter) (bool, error) {
	for path, want := range f {
		got, ok := d.lookup(path)
		if !ok {
			return false, nil
		}
		nw, err := normalize(want)
		if err != nil {
			return false, fmt.Errorf("filter %q: %w", path, err)
		}
		if !reflect.DeepEqual(got, nw) {
			return false, nil
		}
	}
	return true, nil
}

func (d document) lookup(path string) (any, bool) {
	var cur any = map[string]any(d)
	for _, part := range strings.Split(path, ".") {
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

func (d document) set(path string, v any) error {
	parts := strings.Split(path, ".")
	m := map[string]any(d)
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part]
		if !ok || next == nil {
			child := map[string]any{}
			m[part] = child
			m = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("cannot set %q: %q is not an object", path, part)
		}
		m = child
	}
	m[parts[len(parts)-1]] = v
	return nil
}

func (d document) array(path string) ([]any, error) {
	cur, ok := d.lookup(path)
	if !ok || cur == nil {
		return nil, nil
	}
	arr, ok := cur.([]any)
	if !ok {
		return nil, fmt.Errorf("field %q is not an array", path)
	}
	return arr, nil
}

func (d document) apply(u Update) error {
	for _, path := range sortedPaths(u.Set) {
		v, err := normalize(u.Set[path])
		if err != nil {
			return fmt.Errorf("set %q: %w", path, err)
		}
		if err := d.set(path, v); err != nil {
			return err
		}
	}
	for _, path := range sortedPaths(u.AddToSet) {
		v, err := normalize(u.AddToSet[path])
		if err != nil {
			return fmt.Errorf("add to %q: %w", path, err)
		}
		arr, err := d.array(path)
		if err != nil {
			return err
		}
		if !containsValue(arr, v) {
			arr = append(arr, v)
		}
		if err := d.set(path, arr); err != nil {
			return err
		}
	}
	for _, path := range sortedPaths(u.Pull) {
		v, err := normalize(u.Pull[path])
		if err != nil {
			return fmt.Errorf("pull from %q: %w", path, err)
		}
		arr, err := d.array(path)
		if err != nil {
			return err
		}
		kept := make([]any, 0, len(arr))
		for _, item := range arr {
			if !reflect.DeepEqual(item, v) {
				kept = append(kept, item)
			}
		}
		if err := d.set(path, kept); err != nil {
			return err
		}
	}
	return nil
}

func containsValue(arr []any, v any) bool {
	for _, item := range arr {
		if reflect.DeepEqual(item, v) {
			return true
		}
	}
	return false
}

func sortedPaths(f Fields) []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func decodeInto(raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// decodeAll decodes raw JSON documents into out, a pointer to a slice.
func decodeAll(raws [][]byte, out any) error {
	var b strings.Builder
	b.WriteByte('[')
	for i, raw := range raws {
		if i > 0 {
			b.WriteByte(',')
		}
		b.Write(raw)
	}
	b.WriteByte(']')
	return decodeInto([]byte(b.String()), out)
}

// keyLookup returns the natural key when the filter addresses exactly one
// document by it.
func keyLookup(keyField string, f Filter) (string, bool) {
	if len(f) != 1 {
		return "", false
	}
	v, ok := f[keyField].(string)
	return v, ok
}

func encode(d document) ([]byte, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return raw, nil
}
