// Package combine merges the per-period CSV files of the trade database
// into a single cleaned, sorted table.
//
// Rows whose Year is missing or not numeric are dropped, Year is
// truncated to an integer and only years strictly between 1970 and 2020
// are kept. Quantity values that are not numeric become missing.
package combine
