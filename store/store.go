// Package store is the boundary to the path-addressed document database.
//
// Paths alternate collection and document ids: "admin/a1/forms/f1" names a
// document, "admin/a1/forms" names a collection. Documents are JSON-encodable
// Go values.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidPath = errors.New("invalid document path")
)

type Store interface {
	// Get decodes the document at path into dst, or returns ErrNotFound.
	Get(ctx context.Context, path string, dst any) error
	// Set creates or overwrites the document at path.
	Set(ctx context.Context, path string, src any) error
	// Update overwrites the given top-level fields of an existing document.
	Update(ctx context.Context, path string, fields map[string]any) error
	// Delete removes the document at path. Deleting a missing document is not an error.
	Delete(ctx context.Context, path string) error
	// List returns the documents directly inside collection, ordered by id.
	List(ctx context.Context, collection string) ([]Snapshot, error)
	// RunTransaction runs fn atomically. All reads must happen before the first write.
	RunTransaction(ctx context.Context, fn func(context.Context, Tx) error) error
	Close() error
}

type Tx interface {
	Get(path string, dst any) error
	Set(path string, src any) error
	Delete(path string) error
}

type Snapshot struct {
	ID   string
	Path string
	Data []byte
}

func (s Snapshot) DataTo(dst any) error {
	return json.Unmarshal(s.Data, dst)
}

// SplitDoc returns the parent collection and id of a document path.
func SplitDoc(path string) (parent, id string, err error) {
	segments, err := split(path)
	if err != nil {
		return
	}
	if len(segments)%2 != 0 {
		err = ErrInvalidPath
		return
	}
	last := len(segments) - 1
	return strings.Join(segments[:last], "/"), segments[last], nil
}

// CheckCollection validates a collection path.
func CheckCollection(path string) error {
	segments, err := split(path)
	if err != nil {
		return err
	}
	if len(segments)%2 != 1 {
		return ErrInvalidPath
	}
	return nil
}

func split(path string) ([]string, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}
	segments := strings.Split(path, "/")
	for _, s := range segments {
		if s == "" || s == "." || s == ".." {
			return nil, ErrInvalidPath
		}
	}
	return segments, nil
}

// ToMap converts a document into its generic JSON representation.
func ToMap(src any) (map[string]any, error) {
	b, err := json.Marshal(src)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	err = json.Unmarshal(b, &m)
	return m, err
}

// FromMap decodes a generic JSON representation into dst.
func FromMap(m map[string]any, dst any) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
