// Package files discovers input datasets on disk and reports which of the
// configured datasets are present and already cleaned.
package files
