// Package pipeline runs the stages that turn the remote archive into the
// combined dataset: resolve the archive name, download it, verify its
// checksum, extract it, combine the CSV files, persist the result and
// record a history snapshot.
//
// Each stage is a Step that reads and updates a shared State. A Pipeline
// runs its steps in order, logs each one and stops at the first failure
// unless configured otherwise. Cancellation is checked between steps.
package pipeline
