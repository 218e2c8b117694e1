// Package database provides SQLite-based storage for citestrade.
//
// The HistoryDB stores one snapshot row per combined dataset written to
// disk: the dataset version, the archive and combined file paths, their
// checksums and the number of rows. Load uses the latest snapshot to find
// the combined file and its checksum when the registry does not know it.
//
// SQLite is provided by modernc.org/sqlite, which needs no cgo. The
// database is a single file in the data directory.
package database
