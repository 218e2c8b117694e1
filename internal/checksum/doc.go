// Package checksum computes and verifies file digests.
//
// Files are read in chunks of a fixed number of hash blocks, so memory use
// does not grow with the file size. The digest is returned as lowercase hex.
//
// Supported algorithms:
//   - md5 (default)
//   - sha1
//   - sha256
//   - sha3-256
//   - blake2b-256
package checksum
