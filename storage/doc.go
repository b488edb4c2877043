// Package storage defines the persistence interfaces for signal records and
// ingestion checkpoints, plus their binary serialization. The badger
// subpackage provides the BadgerDB-backed implementation.
package storage
