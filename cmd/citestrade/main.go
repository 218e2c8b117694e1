// Package main provides the entry point for the citestrade CLI.
//
// citestrade downloads the CITES Trade Database, verifies it, and combines
// its CSV extracts into a single gzip compressed CSV for analysis.
//
// Usage:
//
//	citestrade get [--force-update] [--cleanup]
//	citestrade load [--update] [--markdown]
//
// See --help for all available options.
package main

// main is the entry point for citestrade.
func main() {
	Execute()
}
