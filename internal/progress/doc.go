// Package progress renders single-line progress indicators for long
// running stages: bytes for downloads and file counts for extraction and
// combination.
//
// A Reporter with a non-positive total is unbounded: it shows the running
// count without a percentage.
package progress
