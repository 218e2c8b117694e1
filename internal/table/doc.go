// Package table holds the in-memory representation of CITES trade records
// and reads and writes it as (gzip compressed) CSV.
//
// Two columns are typed: Year is an integer and Quantity a float that may
// be missing. Every other column is kept as a string, with the empty string
// standing for a missing value. Input files are decoded as UTF-8, and a
// leading byte order mark is removed.
package table
