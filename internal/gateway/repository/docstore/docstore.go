// Package docstore is the document-store collaborator used by the entity
// stores. Every backend exposes the same collection-scoped operations:
// exact-match filters on top-level fields and field-level $set updates.
package docstore

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrDuplicateKey = errors.New("duplicate document key")
	ErrImmutableKey = errors.New("natural key cannot be updated")
)

// Filter matches documents whose top-level fields equal every value given.
// An empty filter matches all documents.
type Filter map[string]any

// Fields maps (possibly dotted) field paths to values.
type Fields map[string]any

// Update is applied atomically to a single document. Set paths may be dotted
// so that embedded objects are merged field by field. AddToSet and Pull add or
// remove one scalar from an array field.
type Update struct {
	Set      Fields
	AddToSet Fields
	Pull     Fields
}

func (u Update) IsZero() bool {
	return len(u.Set) == 0 && len(u.AddToSet) == 0 && len(u.Pull) == 0
}

type Collection interface {
	Name() string
	KeyField() string
	// FindOne decodes the first matching document into out.
	FindOne(ctx context.Context, filter Filter, out any) error
	// InsertOne fails with ErrDuplicateKey if the natural key is taken.
	InsertOne(ctx context.Context, doc any) error
	// FindOneAndUpdate decodes the document as it is after the update.
	FindOneAndUpdate(ctx context.Context, filter Filter, update Update, out any) error
	DeleteOne(ctx context.Context, filter Filter) error
	// Find decodes all matching documents into out, a pointer to a slice.
	Find(ctx context.Context, filter Filter, out any) error
}

type DB interface {
	// Collection opens a collection whose documents are unique on keyField.
	Collection(ctx context.Context, name, keyField string) (Collection, error)
	Close(ctx context.Context) error
}

func touchesKey(keyField string, u Update) bool {
	for _, fields := range []Fields{u.Set, u.AddToSet, u.Pull} {
		if _, ok := fields[keyField]; ok {
			return true
		}
	}
	return false
}
