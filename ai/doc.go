// Package ai defines the embedding abstraction used by the matching engine
// and its configuration. Concrete implementations live in subpackages:
// openai (OpenAI-compatible HTTP services), local (offline feature-hashing
// embedder) and mock (test doubles).
package ai
