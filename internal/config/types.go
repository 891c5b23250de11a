package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration is a time.Duration read from YAML or the environment.
//
// Besides Go duration strings ("8s", "5m") it accepts a whole number of days
// ("1d", "7d") for cache TTLs and a bare integer, read as seconds, for env
// vars such as CADENCE_PLANNING_ORCHESTRATION_TIMEOUT=8.
type Duration time.Duration

// UnmarshalText parses a duration, rejecting negative values.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := parseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	if parsed < 0 {
		return fmt.Errorf("duration %q is negative", text)
	}
	*d = Duration(parsed)
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// MarshalText writes the Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration().String())
}

// Duration returns the value as a time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Secret is an API key for a recommendation source. It prints as
// [REDACTED] in every format so config dumps and log fields are safe.
type Secret string

const redacted = "[REDACTED]"

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

func (s Secret) GoString() string { return "config.Secret(" + redacted + ")" }

// Value returns the key itself, for building request headers.
func (s Secret) Value() string { return string(s) }

// IsSet reports whether a key was configured.
func (s Secret) IsSet() bool { return s != "" }

// Hint returns the last four characters, enough to tell keys apart in the
// startup log.
func (s Secret) Hint() string {
	if len(s) <= 8 {
		return s.String()
	}
	return "..." + string(s[len(s)-4:])
}

func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s Secret) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Secret) UnmarshalText(text []byte) error {
	*s = Secret(strings.TrimSpace(string(text)))
	return nil
}
