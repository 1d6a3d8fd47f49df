// Package sanitizer normalizes user input before validation and storage.
//
// Every function is idempotent and never fails: invalid input collapses to an
// empty string or is dropped from a slice.
package sanitizer
