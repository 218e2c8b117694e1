// Package dataset is the entry point for obtaining the combined CITES
// trade dataset.
//
// Get runs the whole acquisition pipeline: it resolves the archive name,
// downloads the archive unless it is already cached, verifies its
// checksum, extracts it, combines the CSV files and writes the result as
// a gzip compressed CSV in the data directory. Every successful run is
// recorded in the history database.
//
// Load reads the combined dataset back after checking its checksum. The
// expected checksum comes from the registry entry of the dataset version
// or, when the registry does not know it, from the history snapshot
// recorded when the file was written.
package dataset
