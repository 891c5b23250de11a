// Package synth reconciles recommendation source opinions into one Decision.
//
// Synthesis is a pure function. Unavailable or missing sources are replaced
// by their documented fallback opinion, a base decision is assembled, and
// then an ordered list of named rules resolves conflicts:
//
//  1. stress-dominance: a critical or overloaded stress state forces the
//     lowest workout tier regardless of phase suggestions
//  2. fuel-dominance: fuel risk of 0.7 or more puts nutrition first in the
//     summary ordering
//  3. tone-filter: the psychology tone rewrites rationale phrasing, never
//     numbers
//  4. default: the workout source's own suggestion stands
//
// Each rule claims the decision fields it writes. The first rule that applies
// to a field wins it; later rules only see fields still open.
package synth
