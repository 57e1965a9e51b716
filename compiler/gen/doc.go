// Package gen generates the Go declarations of the entities listed in an
// entity description.
//
// For every entity the generator writes one file holding:
//
//   - the entity struct,
//   - one schema.Column variable per field,
//   - the schema.Table descriptor,
//   - the Bind and Target methods that make the entity a tablekit.Record,
//   - the tablekit.Model variable, and
//   - a tablekit.Relation for every foreign key.
//
// Files are rendered with jennifer, formatted with goimports and written
// in parallel:
//
//	d, err := load.Load("tablekit.yaml")
//	if err != nil {
//		return err
//	}
//	err = gen.Generate(ctx, d, gen.WithTarget("./internal/store"))
package gen
