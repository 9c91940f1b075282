package models

import (
	"encoding/json"
	"maps"
	"time"
)

// Layer tells where a record came from.
type Layer string

const (
	// LayerDefault marks compiled-in, read-only records.
	LayerDefault Layer = "default"
	// LayerCustom marks user-created records.
	LayerCustom Layer = "custom"
)

// SyncStatus is the per-collection synchronization state.
type SyncStatus string

const (
	StatusIdle    SyncStatus = "idle"
	StatusSyncing SyncStatus = "syncing"
	StatusSynced  SyncStatus = "synced"
	StatusError   SyncStatus = "error"
	StatusOffline SyncStatus = "offline"
)

// Record is one row of a collection.
type Record struct {
	ID    string         `json:"id"`
	Layer Layer          `json:"layer"`
	Data  map[string]any `json:"data"`

	// Pending marks a local change the remote store has not confirmed.
	Pending bool `json:"pending,omitempty"`
	// LocalOnly marks a row minted on this device and never created remotely.
	LocalOnly bool `json:"localOnly,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	r.Data = CloneData(r.Data)
	return r
}

// Apply merges patch into the record data. A nil value removes the key.
func (r *Record) Apply(patch map[string]any) {
	if r.Data == nil {
		r.Data = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		if v == nil {
			delete(r.Data, k)
			continue
		}
		r.Data[k] = cloneValue(v)
	}
}

// CloneData deep-copies a JSON-like map.
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneData(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case json.RawMessage:
		return append(json.RawMessage(nil), t...)
	default:
		return v
	}
}

// View is the merged, consumer-facing state of a collection.
type View struct {
	Collection string     `json:"collection"`
	Records    []Record   `json:"records"`
	Status     SyncStatus `json:"status"`
}

// Find returns the record with id, if present.
func (v View) Find(id string) (Record, bool) {
	for _, r := range v.Records {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

// Layered returns the records of one layer, in view order.
func (v View) Layered(layer Layer) []Record {
	out := make([]Record, 0, len(v.Records))
	for _, r := range v.Records {
		if r.Layer == layer {
			out = append(out, r)
		}
	}
	return out
}

// WriteResult is the outcome of a successful write.
type WriteResult struct {
	Record Record `json:"record"`
	// LocalOnly is set when the write reached local storage but not the
	// remote store ("saved locally only").
	LocalOnly bool `json:"localOnly"`
}

// WithoutID returns a copy of data without the "id" key.
func WithoutID(data map[string]any) map[string]any {
	out := CloneData(data)
	if out == nil {
		return map[string]any{}
	}
	maps.DeleteFunc(out, func(k string, _ any) bool { return k == "id" })
	return out
}
