// Package output renders CLI results as a table, JSON or YAML.
//
// Table headers come from the json tag of each struct field, upper-cased.
// Fields tagged `table:"wide"` appear only with --wide, `table:"-"` never.
package output
