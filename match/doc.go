// Package match orchestrates a match request end to end: extract features
// from the startup description, retrieve candidates from the vector index
// with a widened depth, re-score every candidate with the blended relevance
// score, apply the relevance floor, and attach reasoning to the survivors.
package match
