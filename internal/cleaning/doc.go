// Package cleaning holds the column-level transforms shared by every dataset
// cleaner: dropping excluded columns, tidying names, mapping sentinel strings
// to missing, coercing boolean-like columns and encoding national comparison
// strings as ordinals.
//
// Every transform mutates the table in place and is safe to run on an empty
// table.
package cleaning
