// Package documents implements the remote document store: namespaced
// collections of schemaless JSON documents with change notification.
package documents

import (
	"maps"
	"time"
)

// Document is one stored record. Data never carries the id.
type Document struct {
	ID         string
	Collection string
	Data       map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Clone returns a copy whose Data can be modified independently at the top
// level.
func (d *Document) Clone() *Document {
	c := *d
	c.Data = maps.Clone(d.Data)
	if c.Data == nil {
		c.Data = map[string]any{}
	}
	return &c
}

// applyPatch merges patch into data. Nil values remove keys and the id key
// is ignored.
func applyPatch(data, patch map[string]any) {
	for k, v := range patch {
		if k == "id" {
			continue
		}
		if v == nil {
			delete(data, k)
			continue
		}
		data[k] = v
	}
}
