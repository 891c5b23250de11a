// Package clamp bounds untrusted numeric output into safe physiological
// ranges.
//
// Every path that surfaces a calorie, macro or risk number passes through
// this package. Corrections are applied in a fixed order: unit-confusion
// first (kilojoules or percentages), then hard bounds. Out-of-range input is
// never an error; it is silently corrected.
//
// All functions are pure and idempotent: Normalize(Normalize(d)) equals
// Normalize(d).
package clamp
