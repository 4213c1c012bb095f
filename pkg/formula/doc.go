// Package formula parses the small expression language used in manifest
// prepare and filter cells, e.g. `sort(name)`, `page(id, size: 100)` or
// `code = "LT" & active`.
//
// The result is a tree of Expr values whose JSON form is {"name", "args"}.
// Arguments are either nested Expr values or literals (string, int64,
// float64, bool, nil, []any).
package formula
