// Package reason generates the natural-language justification attached to
// each surfaced match, grounded in the concrete terms, categories, or agency
// the query and signal actually share.
package reason
