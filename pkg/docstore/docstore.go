// Package docstore is the document-store port used by the repositories.
//
// Documents are Go values carrying both json and bson tags; the identity field
// is "_id" and holds a string. Filters are equality matches on top-level fields.
package docstore

import (
	"context"
	"errors"
)

// IDField is the document identity field.
const IDField = "_id"

var (
	ErrNoDocuments  = errors.New("docstore: no documents in result")
	ErrDuplicateKey = errors.New("docstore: duplicate key")
)

// Filter matches documents whose fields equal every given value.
type Filter map[string]any

// Document is a partial document used for $set style updates.
type Document map[string]any

type SortOrder int

const (
	Ascending  SortOrder = 1
	Descending SortOrder = -1
)

type SortField struct {
	Field string
	Order SortOrder
}

// FindOptions paginates and orders a Find. A zero Limit means no limit.
// Null and missing values sort lowest.
type FindOptions struct {
	Skip  int64
	Limit int64
	Sort  []SortField
}

// GroupCount is one group of a GroupCount call.
type GroupCount struct {
	Key   int64 `json:"key" bson:"_id"`
	Count int64 `json:"count" bson:"count"`
}

type IndexSpec struct {
	Name   string
	Keys   []SortField
	Unique bool
}

type Collection interface {
	// InsertOne stores doc, assigning a UUID _id when it has none, and
	// returns the id. It fails with ErrDuplicateKey on a unique index hit.
	InsertOne(ctx context.Context, doc any) (string, error)
	FindOne(ctx context.Context, filter Filter, dst any) error
	// Find decodes the matching documents into dst, a pointer to a slice.
	Find(ctx context.Context, filter Filter, opts FindOptions, dst any) error
	// UpdateOne applies set to the first match and decodes the updated
	// document into dst when dst is not nil.
	UpdateOne(ctx context.Context, filter Filter, set Document, dst any) error
	DeleteOne(ctx context.Context, filter Filter) error
	Count(ctx context.Context, filter Filter) (int64, error)
	// GroupCount counts matching documents per value of an integer field.
	GroupCount(ctx context.Context, filter Filter, field string) ([]GroupCount, error)
	EnsureIndex(ctx context.Context, spec IndexSpec) error
}

type Store interface {
	Collection(name string, opts ...CollectionOption) Collection
	Close(ctx context.Context) error
}

type collectionConfig struct {
	timeFields map[string]bool
}

type CollectionOption func(*collectionConfig)

// WithTimeFields marks fields holding timestamps. Stores that keep documents
// as JSON use it to order those fields chronologically.
func WithTimeFields(fields ...string) CollectionOption {
	return func(c *collectionConfig) {
		for _, f := range fields {
			c.timeFields[f] = true
		}
	}
}

func newCollectionConfig(opts []CollectionOption) collectionConfig {
	cfg := collectionConfig{timeFields: make(map[string]bool)}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}
