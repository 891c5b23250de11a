package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Errors returned by stores.
var (
	ErrNotFound        = errors.New("document not found")
	ErrInvalidDocument = errors.New("document is not a JSON object")
	ErrInvalidField    = errors.New("invalid filter field")
	ErrEmptyCollection = errors.New("collection is required")
)

// Filter matches documents whose top-level fields equal the given strings.
// An empty filter matches every document in the collection.
type Filter map[string]string

// UpdateFunc receives the current document (nil when upserting) and returns
// its replacement. Returning the input unchanged leaves the document as is.
type UpdateFunc func(current []byte) ([]byte, error)

// UpdateOptions configure FindOneAndUpdate.
type UpdateOptions struct {
	Upsert bool
}

// UpdateOption configures FindOneAndUpdate.
type UpdateOption func(*UpdateOptions)

// WithUpsert inserts the document returned by the UpdateFunc when nothing
// matches the filter.
func WithUpsert() UpdateOption {
	return func(o *UpdateOptions) {
		o.Upsert = true
	}
}

// Store is the document interface the engine depends on.
type Store interface {
	// FindOne returns the first document matching filter in insertion order.
	FindOne(ctx context.Context, collection string, filter Filter) ([]byte, error)

	// Find returns every document matching filter in insertion order.
	Find(ctx context.Context, collection string, filter Filter) ([][]byte, error)

	// FindOneAndUpdate atomically replaces the first matching document and
	// returns the stored result.
	FindOneAndUpdate(ctx context.Context, collection string, filter Filter, update UpdateFunc, opts ...UpdateOption) ([]byte, error)

	// Insert adds a new document.
	Insert(ctx context.Context, collection string, doc []byte) error

	// UpdateMany applies update to every matching document and returns how
	// many documents changed.
	UpdateMany(ctx context.Context, collection string, filter Filter, update UpdateFunc) (int, error)

	// Close releases resources.
	Close() error
}

func applyOptions(opts []UpdateOption) UpdateOptions {
	var o UpdateOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func validate(collection string, filter Filter) error {
	if collection == "" {
		return ErrEmptyCollection
	}
	for field := range filter {
		if !validField(field) {
			return fmt.Errorf("%w: %q", ErrInvalidField, field)
		}
	}
	return nil
}

// validField accepts lower-case identifiers, which keeps SQLite JSON paths
// free of quoting concerns.
func validField(field string) bool {
	if field == "" {
		return false
	}
	for i, r := range field {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func validDocument(doc []byte) error {
	if !gjson.ValidBytes(doc) || !gjson.ParseBytes(doc).IsObject() {
		return ErrInvalidDocument
	}
	return nil
}

// matches reports whether doc satisfies filter.
func matches(doc []byte, filter Filter) bool {
	for field, want := range filter {
		got := gjson.GetBytes(doc, field)
		if !got.Exists() || got.String() != want {
			return false
		}
	}
	return true
}
