package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps collections in process memory. Unique indexes are
// enforced under the collection lock, so concurrent inserts of the same key
// cannot both succeed. Intended for development and tests.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]*MemoryCollection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*MemoryCollection)}
}

func (s *MemoryStore) Collection(name string, _ ...CollectionOption) Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = &MemoryCollection{}
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) Close(context.Context) error { return nil }

type MemoryCollection struct {
	mu      sync.RWMutex
	docs    []map[string]any // insertion order
	indexes []IndexSpec
}

func (c *MemoryCollection) InsertOne(_ context.Context, doc any) (string, error) {
	m, err := normalize(doc)
	if err != nil {
		return "", err
	}
	id, _ := m[IDField].(string)
	if id == "" {
		id = uuid.NewString()
		m[IDField] = id
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(Filter{IDField: id}) >= 0 {
		return "", fmt.Errorf("%w: %s %q", ErrDuplicateKey, IDField, id)
	}
	if name, ok := c.violates(m, -1); ok {
		return "", fmt.Errorf("%w: index %s", ErrDuplicateKey, name)
	}
	c.docs = append(c.docs, m)
	return id, nil
}

func (c *MemoryCollection) FindOne(_ context.Context, filter Filter, dst any) error {
	f, err := normalize(filter)
	if err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.indexOfNormalized(f)
	if i < 0 {
		return ErrNoDocuments
	}
	return decode(c.docs[i], dst)
}

func (c *MemoryCollection) Find(_ context.Context, filter Filter, opts FindOptions, dst any) error {
	f, err := normalize(filter)
	if err != nil {
		return err
	}

	c.mu.RLock()
	matched := make([]map[string]any, 0)
	for _, d := range c.docs {
		if matches(d, f) {
			matched = append(matched, d)
		}
	}
	c.mu.RUnlock()

	if len(opts.Sort) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, s := range opts.Sort {
				cmp := compareValues(matched[i][s.Field], matched[j][s.Field])
				if cmp == 0 {
					continue
				}
				if s.Order == Descending {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}

	if opts.Skip > 0 {
		if opts.Skip >= int64(len(matched)) {
			matched = matched[:0]
		} else {
			matched = matched[opts.Skip:]
		}
	}
	if opts.Limit > 0 && opts.Limit < int64(len(matched)) {
		matched = matched[:opts.Limit]
	}
	return decode(matched, dst)
}

func (c *MemoryCollection) UpdateOne(_ context.Context, filter Filter, set Document, dst any) error {
	f, err := normalize(filter)
	if err != nil {
		return err
	}
	patch, err := normalize(set)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOfNormalized(f)
	if i < 0 {
		return ErrNoDocuments
	}
	updated := make(map[string]any, len(c.docs[i])+len(patch))
	for k, v := range c.docs[i] {
		updated[k] = v
	}
	for k, v := range patch {
		if k == IDField {
			continue
		}
		updated[k] = v
	}
	if name, ok := c.violates(updated, i); ok {
		return fmt.Errorf("%w: index %s", ErrDuplicateKey, name)
	}
	c.docs[i] = updated
	if dst == nil {
		return nil
	}
	return decode(updated, dst)
}

func (c *MemoryCollection) DeleteOne(_ context.Context, filter Filter) error {
	f, err := normalize(filter)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOfNormalized(f)
	if i < 0 {
		return ErrNoDocuments
	}
	c.docs = append(c.docs[:i], c.docs[i+1:]...)
	return nil
}

func (c *MemoryCollection) Count(_ context.Context, filter Filter) (int64, error) {
	f, err := normalize(filter)
	if err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var n int64
	for _, d := range c.docs {
		if matches(d, f) {
			n++
		}
	}
	return n, nil
}

func (c *MemoryCollection) GroupCount(_ context.Context, filter Filter, field string) ([]GroupCount, error) {
	f, err := normalize(filter)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	counts := make(map[int64]int64)
	for _, d := range c.docs {
		if !matches(d, f) {
			continue
		}
		v, ok := d[field].(float64)
		if !ok {
			continue
		}
		counts[int64(v)]++
	}
	c.mu.RUnlock()

	out := make([]GroupCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, GroupCount{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (c *MemoryCollection) EnsureIndex(_ context.Context, spec IndexSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, idx := range c.indexes {
		if idx.Name == spec.Name {
			return nil
		}
	}
	if spec.Unique {
		seen := make(map[string]bool, len(c.docs))
		for _, d := range c.docs {
			k := indexKey(d, spec)
			if seen[k] {
				return fmt.Errorf("%w: cannot build index %s", ErrDuplicateKey, spec.Name)
			}
			seen[k] = true
		}
	}
	c.indexes = append(c.indexes, spec)
	return nil
}

func (c *MemoryCollection) indexOf(filter Filter) int {
	f, err := normalize(filter)
	if err != nil {
		return -1
	}
	return c.indexOfNormalized(f)
}

func (c *MemoryCollection) indexOfNormalized(f map[string]any) int {
	for i, d := range c.docs {
		if matches(d, f) {
			return i
		}
	}
	return -1
}

// violates reports the first unique index doc collides with, ignoring the
// document at position self.
func (c *MemoryCollection) violates(doc map[string]any, self int) (string, bool) {
	for _, idx := range c.indexes {
		if !idx.Unique {
			continue
		}
		key := indexKey(doc, idx)
		for i, d := range c.docs {
			if i != self && indexKey(d, idx) == key {
				return idx.Name, true
			}
		}
	}
	return "", false
}

func indexKey(doc map[string]any, idx IndexSpec) string {
	parts := make([]string, len(idx.Keys))
	for i, k := range idx.Keys {
		b, _ := json.Marshal(doc[k.Field])
		parts[i] = string(b)
	}
	return strings.Join(parts, "\x00")
}

func matches(doc, filter map[string]any) bool {
	for k, want := range filter {
		if !reflect.DeepEqual(doc[k], want) {
			return false
		}
	}
	return true
}

// normalize maps v onto its JSON shape so stored values, filters and patches
// compare alike.
func normalize(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("docstore: encode document: %w", err)
	}
	m := make(map[string]any)
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("docstore: document is not an object: %w", err)
	}
	return m, nil
}

func decode(src, dst any) error {
	b, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("docstore: encode document: %w", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("docstore: decode document: %w", err)
	}
	return nil
}

// compareValues orders nil first, then numbers, timestamps and strings.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case string:
		if bv, ok := b.(string); ok {
			at, aerr := time.Parse(time.RFC3339Nano, av)
			bt, berr := time.Parse(time.RFC3339Nano, bv)
			if aerr == nil && berr == nil {
				return at.Compare(bt)
			}
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
