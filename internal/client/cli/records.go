package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/nutrikeeper/internal/client/dataset"
	"github.com/dmitrijs2005/nutrikeeper/internal/client/models"
)

// Collections lists the default collections and the ones created on this
// device.
func (a *App) Collections(ctx context.Context) error {
	local, err := a.sync.Collections(ctx)
	if err != nil {
		return err
	}

	defaults := a.defaults.Collections()
	for _, name := range defaults {
		fmt.Fprintf(a.out, "%s (%d defaults)\n", name, len(a.defaults.Records(name)))
	}
	for _, name := range local {
		if !slices.Contains(defaults, name) {
			fmt.Fprintf(a.out, "%s (custom)\n", name)
		}
	}
	return nil
}

func (a *App) List(ctx context.Context, collection string) error {
	v, err := a.sync.View(ctx, collection)
	if err != nil {
		return err
	}
	a.printView(v)
	return nil
}

func (a *App) Show(ctx context.Context, collection, id string) error {
	v, err := a.sync.View(ctx, collection)
	if err != nil {
		return err
	}
	r, ok := v.Find(id)
	if !ok {
		fmt.Fprintf(a.out, "No record %s in %s\n", id, collection)
		return nil
	}

	fmt.Fprintf(a.out, "%s (%s%s)\n", r.ID, r.Layer, pendingMark(r))
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, k := range slices.Sorted(maps.Keys(r.Data)) {
		if k == "ingredients" && collection == dataset.Recipes {
			continue
		}
		fmt.Fprintf(tw, "  %s\t%v\n", k, r.Data[k])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	a.printDetails(ctx, collection, r)
	return nil
}

// printDetails adds the nutrition summary of a food or the ingredient list
// of a recipe. Rows that do not decode are shown as plain fields only.
func (a *App) printDetails(ctx context.Context, collection string, r models.Record) {
	switch collection {
	case dataset.Foods:
		f, err := models.Decode[models.Food](r)
		if err != nil {
			a.logger.Debug(ctx, "record is not a food", "id", r.ID, "error", err)
			return
		}
		if f.ServingSize <= 0 {
			return
		}
		fmt.Fprintf(a.out, "%g kcal per %g %s (protein %g, carbs %g, fat %g)\n",
			f.Calories, f.ServingSize, f.ServingUnit, f.Protein, f.Carbs, f.Fat)

	case dataset.Recipes:
		rec, err := models.Decode[models.Recipe](r)
		if err != nil {
			a.logger.Debug(ctx, "record is not a recipe", "id", r.ID, "error", err)
			return
		}
		if len(rec.Ingredients) == 0 {
			return
		}
		fmt.Fprintf(a.out, "Ingredients (serves %d):\n", rec.Servings)
		for _, in := range rec.Ingredients {
			name := in.FoodID
			if food, ok := a.defaults.Get(dataset.Foods, in.FoodID); ok {
				name = recordTitle(food)
			}
			fmt.Fprintf(a.out, "  - %s %g %s\n", name, in.Quantity, in.Unit)
		}
	}
}

func (a *App) Add(ctx context.Context, collection string) error {
	data, err := a.readFields()
	if err != nil {
		return err
	}
	res, err := a.sync.Create(ctx, collection, data)
	if err != nil {
		return err
	}
	a.printWrite("Created", res)
	return nil
}

func (a *App) Edit(ctx context.Context, collection, id string) error {
	patch, err := a.readFields()
	if err != nil {
		return err
	}
	res, err := a.sync.Update(ctx, collection, id, patch)
	if err != nil {
		return err
	}
	a.printWrite("Updated", res)
	return nil
}

func (a *App) Delete(ctx context.Context, collection, id string) error {
	res, err := a.sync.Remove(ctx, collection, id)
	if err != nil {
		return err
	}
	a.printWrite("Deleted", res)
	return nil
}

func (a *App) Status(_ context.Context, collection string) error {
	st := a.sync.Status(collection)
	if n := a.sync.WatchCount(collection); n > 0 {
		fmt.Fprintf(a.out, "%s: %s, %d watcher(s)\n", collection, st, n)
		return nil
	}
	fmt.Fprintf(a.out, "%s: %s\n", collection, st)
	return nil
}

func (a *App) Pending(ctx context.Context, collection string) error {
	rows, err := a.sync.Pending(ctx, collection)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(a.out, "Nothing pending")
		return nil
	}
	for _, r := range rows {
		fmt.Fprintf(a.out, "%s%s\n", r.ID, pendingMark(r))
	}
	return nil
}

func (a *App) Sync(ctx context.Context, collection string) error {
	report, err := a.sync.Sync(ctx, collection)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: %s, status %s\n", collection, report, a.sync.Status(collection))
	return nil
}

// Watch prints the collection now and after every change until Unwatch.
func (a *App) Watch(ctx context.Context, collection string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.watches[collection]; ok {
		fmt.Fprintf(a.out, "Already watching %s\n", collection)
		return nil
	}

	stop, err := a.sync.Watch(ctx, collection, func(v models.View) {
		fmt.Fprintf(a.out, "-- %s changed --\n", collection)
		a.printView(v)
	})
	if err != nil {
		return err
	}
	a.watches[collection] = stop
	return nil
}

func (a *App) Unwatch(_ context.Context, collection string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	stop, ok := a.watches[collection]
	if !ok {
		fmt.Fprintf(a.out, "Not watching %s\n", collection)
		return nil
	}
	stop()
	delete(a.watches, collection)
	return nil
}

func (a *App) readFields() (map[string]any, error) {
	lines, err := GetFieldLines(a.reader, a.out)
	if err != nil {
		return nil, err
	}
	return ParseFields(lines)
}

func (a *App) printView(v models.View) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tLAYER\tNAME\n")
	for _, r := range v.Records {
		fmt.Fprintf(tw, "%s\t%s%s\t%s\n", r.ID, r.Layer, pendingMark(r), recordTitle(r))
	}
	_ = tw.Flush()
	fmt.Fprintf(a.out, "%d records (%d default, %d custom), status %s\n", len(v.Records),
		len(v.Layered(models.LayerDefault)), len(v.Layered(models.LayerCustom)), v.Status)
}

func (a *App) printWrite(verb string, res models.WriteResult) {
	if res.LocalOnly {
		fmt.Fprintf(a.out, "%s %s locally only, remote store did not confirm (run sync later)\n", verb, res.Record.ID)
		return
	}
	fmt.Fprintf(a.out, "%s %s\n", verb, res.Record.ID)
}

func pendingMark(r models.Record) string {
	if r.Pending {
		return ", pending"
	}
	return ""
}

func recordTitle(r models.Record) string {
	for _, k := range []string{"name", "nameAr", "title"} {
		if s, ok := r.Data[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
