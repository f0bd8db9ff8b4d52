// Package entitystore provides the keyed document collection used for every
// entity kind. Natural keys are unique and deletes are physical.
package entitystore

import (
	"context"
	"errors"
	"fmt"

	"meshmeta/internal/gateway/entity"
	"meshmeta/internal/gateway/repository/docstore"
)

type Store[T any] struct {
	coll  docstore.Collection
	kind  string
	keyOf func(*T) string
}

func New[T any](coll docstore.Collection, kind string, keyOf func(*T) string) *Store[T] {
	return &Store[T]{coll: coll, kind: kind, keyOf: keyOf}
}

func (s *Store[T]) Kind() string {
	return s.kind
}

func (s *Store[T]) keyFilter(key string) docstore.Filter {
	return docstore.Filter{s.coll.KeyField(): key}
}

// Create inserts doc unchanged. A document with the same natural key is never
// modified.
func (s *Store[T]) Create(ctx context.Context, doc *T) (*T, error) {
	if s == nil || s.coll == nil {
		return nil, fmt.Errorf("store is nil")
	}
	key := s.keyOf(doc)
	if key == "" {
		return nil, &entity.ValidationError{Field: s.coll.KeyField(), Reason: "is required"}
	}
	var existing T
	err := s.coll.FindOne(ctx, s.keyFilter(key), &existing)
	switch {
	case err == nil:
		return nil, entity.AlreadyExistsf(s.kind, key)
	case !errors.Is(err, docstore.ErrNotFound):
		return nil, fmt.Errorf("create %s %q: %w", s.kind, key, err)
	}
	if err := s.coll.InsertOne(ctx, doc); err != nil {
		if errors.Is(err, docstore.ErrDuplicateKey) {
			return nil, entity.AlreadyExistsf(s.kind, key)
		}
		return nil, fmt.Errorf("create %s %q: %w", s.kind, key, err)
	}
	return doc, nil
}

func (s *Store[T]) Get(ctx context.Context, key string) (*T, error) {
	if s == nil || s.coll == nil {
		return nil, fmt.Errorf("store is nil")
	}
	var out T
	if err := s.coll.FindOne(ctx, s.keyFilter(key), &out); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, entity.NotFoundf(s.kind, key)
		}
		return nil, fmt.Errorf("get %s %q: %w", s.kind, key, err)
	}
	return &out, nil
}

// List returns the whole collection.
func (s *Store[T]) List(ctx context.Context) ([]T, error) {
	return s.find(ctx, nil)
}

// FindBy returns every document whose field equals value.
func (s *Store[T]) FindBy(ctx context.Context, field, value string) ([]T, error) {
	return s.find(ctx, docstore.Filter{field: value})
}

func (s *Store[T]) find(ctx context.Context, filter docstore.Filter) ([]T, error) {
	if s == nil || s.coll == nil {
		return nil, fmt.Errorf("store is nil")
	}
	var out []T
	if err := s.coll.Find(ctx, filter, &out); err != nil {
		return nil, fmt.Errorf("list %s: %w", s.kind, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// Update merges the given fields into the stored document and returns the
// result. An empty update behaves like Get.
func (s *Store[T]) Update(ctx context.Context, key string, update docstore.Update) (*T, error) {
	if s == nil || s.coll == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if update.IsZero() {
		return s.Get(ctx, key)
	}
	var out T
	if err := s.coll.FindOneAndUpdate(ctx, s.keyFilter(key), update, &out); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, entity.NotFoundf(s.kind, key)
		}
		return nil, fmt.Errorf("update %s %q: %w", s.kind, key, err)
	}
	return &out, nil
}

func (s *Store[T]) Delete(ctx context.Context, key string) error {
	if s == nil || s.coll == nil {
		return fmt.Errorf("store is nil")
	}
	if err := s.coll.DeleteOne(ctx, s.keyFilter(key)); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return entity.NotFoundf(s.kind, key)
		}
		return fmt.Errorf("delete %s %q: %w", s.kind, key, err)
	}
	return nil
}

// Set wraps sparse entity fields as a $set update.
func Set(fields entity.Fields) docstore.Update {
	return docstore.Update{Set: docstore.Fields(fields)}
}
