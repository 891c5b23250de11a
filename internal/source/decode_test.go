package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		body      string
		wantErr   bool
		wantScore map[string]float64
		wantRec   string
	}{
		{
			name:      "full payload",
			body:      `{"risk_scores":{"fuel_risk":0.8,"carb_need":0.6},"recommendation":{"tip":"eat"},"rationale":"low intake"}`,
			wantScore: map[string]float64{"fuel_risk": 0.8, "carb_need": 0.6},
			wantRec:   "eat",
		},
		{
			name:      "non numeric scores dropped",
			body:      `{"risk_scores":{"fuel_risk":"high","carb_need":0.4}}`,
			wantScore: map[string]float64{"carb_need": 0.4},
		},
		{
			name:      "out of range scores kept for clamping",
			body:      `{"risk_scores":{"fuel_risk":7}}`,
			wantScore: map[string]float64{"fuel_risk": 7},
		},
		{name: "not json", body: `<html>502</html>`, wantErr: true},
		{name: "array", body: `[1,2,3]`, wantErr: true},
		{name: "schema violation", body: `{"risk_scores":[0.2],"recommendation":"rest"}`, wantErr: true},
		{name: "empty", body: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := Decode(SourceMetabolic, []byte(tt.body), now)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedOutput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, SourceMetabolic, op.SourceID)
			assert.Equal(t, tt.wantScore, op.RiskScores)
			assert.Equal(t, tt.wantRec, op.Recommendation.String(KeyTip))
			assert.Equal(t, now, op.Timestamp)
		})
	}
}

func TestExtractJSON(t *testing.T) {
	got := ExtractJSON("Here you go:\n```json\n{\"a\":{\"b\":1}}\n```")
	assert.JSONEq(t, `{"a":{"b":1}}`, string(got))
	assert.Equal(t, "no braces", string(ExtractJSON("no braces")))
}
