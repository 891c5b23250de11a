package source

import (
	"bytes"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// Decode tolerantly parses a source response body into an Opinion.
//
// The body must be a JSON object with at least one of risk_scores or
// recommendation. Non-numeric risk scores are dropped and a non-string
// rationale is ignored; anything else wrong is ErrMalformedOutput.
func Decode(id ID, body []byte, now time.Time) (Opinion, error) {
	body = bytes.TrimSpace(body)
	if !gjson.ValidBytes(body) {
		return Opinion{}, fmt.Errorf("%w: body is not JSON", ErrMalformedOutput)
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return Opinion{}, fmt.Errorf("%w: body is not a JSON object", ErrMalformedOutput)
	}

	scores := root.Get("risk_scores")
	rec := root.Get("recommendation")
	if !scores.IsObject() && !rec.IsObject() {
		return Opinion{}, fmt.Errorf("%w: missing risk_scores and recommendation", ErrMalformedOutput)
	}

	op := Opinion{
		SourceID:       id,
		RiskScores:     map[string]float64{},
		Recommendation: Recommendation{},
		Timestamp:      now,
	}

	if scores.IsObject() {
		scores.ForEach(func(k, v gjson.Result) bool {
			if v.Type == gjson.Number {
				op.RiskScores[k.String()] = v.Float()
			}
			return true
		})
	}

	if rec.IsObject() {
		if m, ok := rec.Value().(map[string]interface{}); ok {
			op.Recommendation = m
		}
	}

	if r := root.Get("rationale"); r.Type == gjson.String {
		op.Rationale = r.String()
	}

	return op, nil
}

// ExtractJSON returns the outermost JSON object in text, tolerating code
// fences and prose around it.
func ExtractJSON(text string) []byte {
	start := bytes.IndexByte([]byte(text), '{')
	end := bytes.LastIndexByte([]byte(text), '}')
	if start < 0 || end <= start {
		return []byte(text)
	}
	return []byte(text[start : end+1])
}
