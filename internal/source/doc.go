// Package source wraps recommendation providers behind one interface.
//
// Each provider evaluates a read-only UserContext plus up to three recent
// logs and returns a Result: either Ok with an Opinion, or Unavailable with a
// Reason. Providers never panic or return bare errors past this boundary;
// Evaluate recovers panics and maps timeouts, network failures and malformed
// payloads to Unavailable.
//
// When a provider is Unavailable the caller substitutes Fallback(id), a fixed
// opinion built from the named constants in fallback.go.
//
// Implementations:
//   - Heuristic providers for every source ID, computed in-process
//   - HTTPProvider for remote JSON services (rate limited, retried)
//   - LLMProvider for a langchaingo language model
package source
