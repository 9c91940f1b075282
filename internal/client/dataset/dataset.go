// Package dataset holds the default records compiled into the binary.
//
// Default records are read-only: every accessor returns deep copies tagged
// models.LayerDefault, and Contains is the single provenance test used by
// the synchronizer to refuse mutations of built-in rows.
package dataset

import (
	"embed"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/nutrikeeper/internal/client/models"
)

//go:embed data/*.json
var files embed.FS

const (
	Foods   = "foods"
	Recipes = "recipes"
)

// Dataset is an immutable set of default collections.
type Dataset struct {
	order   map[string][]string
	records map[string]map[string]map[string]any
}

// Load parses the compiled-in collections.
func Load() (*Dataset, error) {
	d := &Dataset{
		order:   map[string][]string{},
		records: map[string]map[string]map[string]any{},
	}
	for _, name := range []string{Foods, Recipes} {
		raw, err := files.ReadFile("data/" + name + ".json")
		if err != nil {
			return nil, fmt.Errorf("read default %s: %w", name, err)
		}
		if err := d.add(name, raw); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// MustLoad is Load for program start-up; the embedded files are fixed at
// build time, so a failure is a build defect.
func MustLoad() *Dataset {
	d, err := Load()
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Dataset) add(name string, raw []byte) error {
	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return fmt.Errorf("parse default %s: %w", name, err)
	}

	byID := make(map[string]map[string]any, len(rows))
	order := make([]string, 0, len(rows))
	for i, row := range rows {
		id, _ := row["id"].(string)
		if id == "" {
			return fmt.Errorf("default %s[%d]: missing id", name, i)
		}
		if _, dup := byID[id]; dup {
			return fmt.Errorf("default %s: duplicate id %q", name, id)
		}
		delete(row, "id")
		byID[id] = row
		order = append(order, id)
	}

	d.records[name] = byID
	d.order[name] = order
	return nil
}

// Collections lists the collection names that carry defaults.
func (d *Dataset) Collections() []string {
	names := make([]string, 0, len(d.order))
	for n := range d.order {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Contains reports whether id is a default record of collection.
func (d *Dataset) Contains(collection, id string) bool {
	_, ok := d.records[collection][id]
	return ok
}

// Records returns copies of the default records of collection in their
// compiled order. Unknown collections have no defaults.
func (d *Dataset) Records(collection string) []models.Record {
	ids := d.order[collection]
	out := make([]models.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.record(collection, id))
	}
	return out
}

// Get returns a copy of one default record.
func (d *Dataset) Get(collection, id string) (models.Record, bool) {
	if !d.Contains(collection, id) {
		return models.Record{}, false
	}
	return d.record(collection, id), true
}

func (d *Dataset) record(collection, id string) models.Record {
	return models.Record{
		ID:    id,
		Layer: models.LayerDefault,
		Data:  models.CloneData(d.records[collection][id]),
	}
}
