// Package badger implements the storage repositories on BadgerDB.
//
// Signals are stored under ID keys with a secondary composite index on
// publication time for recency queries. Checkpoints live under their own
// key prefix. An in-memory mode backs the test suite.
package badger
