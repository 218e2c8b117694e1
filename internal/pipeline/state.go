package pipeline

import (
	"path/filepath"
	"strings"

	"github.com/nao1215/citestrade/internal/checksum"
	"github.com/nao1215/citestrade/internal/database"
	"github.com/nao1215/citestrade/internal/registry"
	"github.com/nao1215/citestrade/internal/table"
)

// CombinedExt replaces the archive extension in the combined file name.
const CombinedExt = ".csv.gz"

// State is the data passed from step to step during one run.
type State struct {
	// URL is the remote endpoint.
	URL string

	// Version is the dataset version selected from the registry.
	Version string

	// Expected holds the registry digests for Version.
	Expected registry.Entry

	// Algorithm is the digest algorithm used for both checksums.
	Algorithm string

	// ArchivePath is the local archive. Set by the resolve step.
	ArchivePath string

	// Downloaded reports whether the archive was fetched in this run.
	Downloaded bool

	// ArchiveChecksum is the verified archive digest.
	ArchiveChecksum string

	// Extracted lists the files written by the extract step.
	Extracted []string

	// Table is the combined dataset.
	Table *table.Table

	// SourceFiles lists the CSV files that were combined.
	SourceFiles []string

	// CombinedPath is the persisted gzip CSV.
	CombinedPath string

	// CombinedChecksum is the digest of CombinedPath.
	CombinedChecksum string

	// Snapshot is the history row saved by the record step.
	Snapshot *database.Snapshot

	// CompletedSteps lists the names of the steps that succeeded.
	CompletedSteps []string

	// Err is the last step error.
	Err error

	// Cancelled is set when the context ended before all steps ran.
	Cancelled bool
}

// NewState creates a State for a run against url using the registry
// entry of version.
func NewState(url, version string, expected registry.Entry) *State {
	algorithm := expected.Algorithm
	if algorithm == "" {
		algorithm = checksum.DefaultAlgorithm
	}
	return &State{
		URL:       url,
		Version:   version,
		Expected:  expected,
		Algorithm: algorithm,
	}
}

// CombinedFileName derives the combined dataset name from the archive
// name: "trade_database.zip" becomes "trade_database.csv.gz".
func CombinedFileName(archiveName string) string {
	base := filepath.Base(archiveName)
	return strings.TrimSuffix(base, filepath.Ext(base)) + CombinedExt
}
