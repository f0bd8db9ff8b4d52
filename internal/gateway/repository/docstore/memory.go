package docstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryDB keeps every collection in process. Each document is held as its
// encoded form so callers never share memory with the store.
type MemoryDB struct {
	mu          sync.Mutex
	collections map[string]*MemoryCollection
}

func NewMemory() *MemoryDB {
	return &MemoryDB{collections: make(map[string]*MemoryCollection)}
}

func (m *MemoryDB) Collection(_ context.Context, name, keyField string) (Collection, error) {
	if m == nil {
		return nil, fmt.Errorf("store is nil")
	}
	name = strings.TrimSpace(name)
	keyField = strings.TrimSpace(keyField)
	if name == "" || keyField == "" {
		return nil, fmt.Errorf("collection name and key field are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.collections[name]; ok {
		if c.keyField != keyField {
			return nil, fmt.Errorf("collection %s already keyed on %s", name, c.keyField)
		}
		return c, nil
	}
	c := &MemoryCollection{
		name:     name,
		keyField: keyField,
		docs:     make(map[string][]byte),
	}
	m.collections[name] = c
	return c, nil
}

func (m *MemoryDB) Close(context.Context) error { return nil }

type MemoryCollection struct {
	name     string
	keyField string

	mu   sync.RWMutex
	docs map[string][]byte
}

func (c *MemoryCollection) Name() string     { return c.name }
func (c *MemoryCollection) KeyField() string { return c.keyField }

func (c *MemoryCollection) FindOne(_ context.Context, filter Filter, out any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, _, err := c.locateLocked(filter)
	if err != nil {
		return err
	}
	return decodeInto(c.docs[key], out)
}

func (c *MemoryCollection) InsertOne(_ context.Context, doc any) error {
	d, err := toDocument(doc)
	if err != nil {
		return err
	}
	key, err := d.keyValue(c.keyField)
	if err != nil {
		return err
	}
	raw, err := encode(d)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.docs[key]; exists {
		return fmt.Errorf("%w: %s %q", ErrDuplicateKey, c.name, key)
	}
	c.docs[key] = raw
	return nil
}

func (c *MemoryCollection) FindOneAndUpdate(_ context.Context, filter Filter, update Update, out any) error {
	if touchesKey(c.keyField, update) {
		return ErrImmutableKey
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	key, d, err := c.locateLocked(filter)
	if err != nil {
		return err
	}
	if err := d.apply(update); err != nil {
		return err
	}
	raw, err := encode(d)
	if err != nil {
		return err
	}
	c.docs[key] = raw
	return decodeInto(raw, out)
}

func (c *MemoryCollection) DeleteOne(_ context.Context, filter Filter) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key, _, err := c.locateLocked(filter)
	if err != nil {
		return err
	}
	delete(c.docs, key)
	return nil
}

func (c *MemoryCollection) Find(_ context.Context, filter Filter, out any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	raws := make([][]byte, 0, len(c.docs))
	for _, key := range c.sortedKeysLocked() {
		raw := c.docs[key]
		d, err := parseDocument(raw)
		if err != nil {
			return err
		}
		ok, err := d.matches(filter)
		if err != nil {
			return err
		}
		if ok {
			raws = append(raws, raw)
		}
	}
	return decodeAll(raws, out)
}

func (c *MemoryCollection) locateLocked(filter Filter) (string, document, error) {
	if key, ok := keyLookup(c.keyField, filter); ok {
		raw, exists := c.docs[key]
		if !exists {
			return "", nil, ErrNotFound
		}
		d, err := parseDocument(raw)
		return key, d, err
	}
	for _, key := range c.sortedKeysLocked() {
		d, err := parseDocument(c.docs[key])
		if err != nil {
			return "", nil, err
		}
		ok, err := d.matches(filter)
		if err != nil {
			return "", nil, err
		}
		if ok {
			return key, d, nil
		}
	}
	return "", nil, ErrNotFound
}

func (c *MemoryCollection) sortedKeysLocked() []string {
	keys := make([]string, 0, len(c.docs))
	for k := range c.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
