// Package archive extracts the downloaded zip archive next to itself.
package archive
