package screening

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andreypavlenko/jobber/internal/store"
)

func TestFormatTranscript(t *testing.T) {
	t.Run("formats role and message per turn", func(t *testing.T) {
		turns := []CallEventTurn{
			{Role: "agent", Message: "Hi, thanks for calling in.", TimeInCallSecs: 0},
			{Role: "user", Message: "Happy to be here.", TimeInCallSecs: 4.2},
		}
		got := formatTranscript(turns)
		assert.Contains(t, got, "[0s] Agent: Hi, thanks for calling in.")
		assert.Contains(t, got, "[4s] User: Happy to be here.")
	})

	t.Run("falls back to unknown for an empty role", func(t *testing.T) {
		got := formatTranscript([]CallEventTurn{{Role: "", Message: "silence", TimeInCallSecs: 1}})
		assert.Contains(t, got, "Unknown: silence")
	})

	t.Run("empty transcript yields empty string", func(t *testing.T) {
		assert.Empty(t, formatTranscript(nil))
	})
}

func TestAggregateTelemetry(t *testing.T) {
	t.Run("empty buffer yields zero aggregate", func(t *testing.T) {
		agg := aggregateTelemetry(nil)
		assert.Equal(t, store.TelemetryAggregate{}, agg)
	})

	t.Run("averages attention and face presence", func(t *testing.T) {
		buf := []store.TelemetrySnapshot{
			{AttentionScore: 0.8, FacePresent: true},
			{AttentionScore: 0.4, FacePresent: false},
			{AttentionScore: 0.6, FacePresent: true},
		}
		agg := aggregateTelemetry(buf)
		assert.Equal(t, 3, agg.SnapshotCount)
		assert.InDelta(t, 0.6, agg.MeanAttentionScore, 0.001)
		assert.InDelta(t, float64(200)/3, agg.FacePresentPct, 0.001)
	})
}

func TestFirstName(t *testing.T) {
	tests := []struct {
		full     string
		expected string
	}{
		{"Jane Doe", "Jane"},
		{"Cher", "Cher"},
		{"", ""},
		{"Ben  Torres", "Ben"},
	}
	for _, tt := range tests {
		t.Run(tt.full, func(t *testing.T) {
			assert.Equal(t, tt.expected, firstName(tt.full))
		})
	}
}

func TestFailureReasonMaps(t *testing.T) {
	// every entry in failureReasonStatus must have a matching human-readable
	// explanation, or handleCallInitiationFailure's recruiter-facing message
	// silently degrades to the generic fallback.
	for reason := range failureReasonStatus {
		_, ok := failureReasonHuman[reason]
		assert.True(t, ok, "missing human-readable reason for %q", reason)
	}

	assert.Equal(t, store.ScreeningNoAnswer, failureReasonStatus["no_answer"])
	assert.Equal(t, store.ScreeningVoicemail, failureReasonStatus["voicemail"])
	assert.Equal(t, store.ScreeningFailed, failureReasonStatus["invalid_number"])
}
