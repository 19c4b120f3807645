// Package export implements the pure transformations from schema-less task
// result payloads to flat tabular text and to a pretty-printed interchange
// form. It holds no state and assumes nothing about payload shape beyond
// objects, arrays, and scalars.
package export
