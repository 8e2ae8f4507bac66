package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joesh-del/video-management/internal/core/model"
)

func TestValidateBatch_AcceptsGapsInIndices(t *testing.T) {
	batch := []model.NewSegment{
		{Index: 0, StartTime: 0, EndTime: 1, Text: "one"},
		{Index: 5, StartTime: 1, EndTime: 2, Text: "two"},
		{Index: 9, StartTime: 2, EndTime: 3, Text: "three"},
	}
	assert.NoError(t, validateBatch(nil, batch))
}

func TestValidateBatch_RejectsEmptyBatch(t *testing.T) {
	err := validateBatch(nil, nil)
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestValidateBatch_RejectsBadTimes(t *testing.T) {
	cases := []struct {
		name string
		seg  model.NewSegment
	}{
		{"negative start", model.NewSegment{Index: 0, StartTime: -0.5, EndTime: 1, Text: "x"}},
		{"start equals end", model.NewSegment{Index: 0, StartTime: 1, EndTime: 1, Text: "x"}},
		{"start after end", model.NewSegment{Index: 0, StartTime: 2, EndTime: 1, Text: "x"}},
		{"empty text", model.NewSegment{Index: 0, StartTime: 0, EndTime: 1, Text: "  "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ve *model.ValidationError
			assert.ErrorAs(t, validateBatch(nil, []model.NewSegment{tc.seg}), &ve)
		})
	}
}

func TestValidateBatch_RejectsNonIncreasingIndices(t *testing.T) {
	batch := []model.NewSegment{
		{Index: 1, StartTime: 0, EndTime: 1, Text: "a"},
		{Index: 1, StartTime: 1, EndTime: 2, Text: "b"},
	}
	var ve *model.ValidationError
	require.ErrorAs(t, validateBatch(nil, batch), &ve)

	// A batch must also start past the highest stored index.
	existing := []model.Segment{{Index: 3, StartTime: 0, EndTime: 1, Text: "stored"}}
	batch = []model.NewSegment{{Index: 2, StartTime: 5, EndTime: 6, Text: "late"}}
	assert.ErrorAs(t, validateBatch(existing, batch), &ve)
}

func TestValidateBatch_RejectsOverlapWithinBatch(t *testing.T) {
	batch := []model.NewSegment{
		{Index: 0, StartTime: 0, EndTime: 2, Text: "a"},
		{Index: 1, StartTime: 1.5, EndTime: 3, Text: "b"},
	}
	var ve *model.ValidationError
	require.ErrorAs(t, validateBatch(nil, batch), &ve)
	assert.Contains(t, ve.Reason, "overlaps")
}

func TestValidateBatch_RejectsOverlapWithStored(t *testing.T) {
	existing := []model.Segment{{Index: 0, StartTime: 0, EndTime: 2.5, Text: "stored"}}
	batch := []model.NewSegment{{Index: 1, StartTime: 2.0, EndTime: 4, Text: "new"}}

	var ve *model.ValidationError
	require.ErrorAs(t, validateBatch(existing, batch), &ve)
	assert.Contains(t, ve.Reason, "stored segment")

	// Touching boundaries are not an overlap.
	batch = []model.NewSegment{{Index: 1, StartTime: 2.5, EndTime: 4, Text: "new"}}
	assert.NoError(t, validateBatch(existing, batch))
}

func TestValidateExtra(t *testing.T) {
	assert.NoError(t, validateExtra(map[string]string{
		"event_name": "Town Hall",
		"location":   "NYC",
		"other.crew": "b-team",
	}))

	var ve *model.ValidationError
	assert.ErrorAs(t, validateExtra(map[string]string{"venue": "NYC"}), &ve)
	assert.NoError(t, validateExtra(nil))
}
