// Package openai provides an ai.Embedder backed by OpenAI-compatible
// embedding APIs (OpenAI, Ollama, LocalAI, vLLM). Calls are optionally
// rate-limited; timeouts and retries are the caller's responsibility.
package openai
