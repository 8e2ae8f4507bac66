package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joesh-del/video-management/internal/core/model"
)

const sampleExport = `Space Policy Roundtable

Fri, Dec 05, 2025 10:47AM • 21:01

SUMMARY KEYWORDS

nasa, budget, mars, commercial crew

SPEAKERS

Dan Goldin, Interviewer

Interviewer  00:05

Thanks for joining us today. Let's start with the budget question everyone is asking about.

Dan Goldin  00:16

Faster, better, cheaper was never about cutting corners.

It was about challenging assumptions.

Interviewer  1:02

And where does that leave the Mars program?

Dan Goldin  1:15

Exactly where it should be. On the critical path.
`

func TestParseOtterExport_HeaderMetadata(t *testing.T) {
	parsed, err := ParseOtterExport(sampleExport)
	require.NoError(t, err)

	assert.Equal(t, "Space Policy Roundtable", parsed.Title)
	require.NotNil(t, parsed.RecordingDate)
	assert.Equal(t, time.Date(2025, 12, 5, 0, 0, 0, 0, time.UTC), *parsed.RecordingDate)
	assert.Equal(t, float64(21*60+1), parsed.DurationSeconds)
	assert.Equal(t, []string{"nasa", "budget", "mars", "commercial crew"}, parsed.Keywords)
	assert.Equal(t, []string{"Dan Goldin", "Interviewer"}, parsed.Speakers)
}

func TestParseOtterExport_Segments(t *testing.T) {
	parsed, err := ParseOtterExport(sampleExport)
	require.NoError(t, err)
	require.Len(t, parsed.Segments, 4)

	first := parsed.Segments[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, "Interviewer", first.Speaker)
	assert.Equal(t, 5.0, first.StartTime)
	assert.Contains(t, first.Text, "budget question")

	// Multi-paragraph turns collapse into one segment.
	second := parsed.Segments[1]
	assert.Equal(t, "Dan Goldin", second.Speaker)
	assert.Equal(t, 16.0, second.StartTime)
	assert.Contains(t, second.Text, "cutting corners")
	assert.Contains(t, second.Text, "challenging assumptions")

	// End times chain to the next start; the last falls back to duration.
	assert.Equal(t, 16.0, first.EndTime)
	assert.Equal(t, 62.0, second.EndTime)
	last := parsed.Segments[3]
	assert.Equal(t, 75.0, last.StartTime)
	assert.Equal(t, parsed.DurationSeconds, last.EndTime)

	// Indices strictly increase from zero.
	for i, seg := range parsed.Segments {
		assert.Equal(t, i, seg.Index)
	}
}

func TestParseOtterExport_SegmentsAppendable(t *testing.T) {
	parsed, err := ParseOtterExport(sampleExport)
	require.NoError(t, err)

	// The parsed batch satisfies the append invariants: ordered, positive
	// spans, no overlap.
	var prev *model.NewSegment
	for i := range parsed.Segments {
		seg := &parsed.Segments[i]
		assert.Less(t, seg.StartTime, seg.EndTime)
		if prev != nil {
			assert.GreaterOrEqual(t, seg.StartTime, prev.EndTime)
			assert.Greater(t, seg.Index, prev.Index)
		}
		prev = seg
	}
}

func TestParseOtterExport_MissingHeaderSections(t *testing.T) {
	minimal := `Untitled Recording
2024-03-10 meeting notes 05:00
Speaker A  00:00
Some opening words.
`
	parsed, err := ParseOtterExport(minimal)
	require.NoError(t, err)
	assert.Equal(t, "Untitled Recording", parsed.Title)
	require.NotNil(t, parsed.RecordingDate)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), *parsed.RecordingDate)
	assert.Empty(t, parsed.Keywords)
	assert.Empty(t, parsed.Speakers)
	require.Len(t, parsed.Segments, 1)
	assert.Equal(t, "Speaker A", parsed.Segments[0].Speaker)
}

func TestParseOtterExport_NoDuration(t *testing.T) {
	text := `Quick Note
Some undated header
Speaker A  00:10
The only line.
`
	parsed, err := ParseOtterExport(text)
	require.NoError(t, err)
	assert.Nil(t, parsed.RecordingDate)
	require.Len(t, parsed.Segments, 1)
	// No chained end and no duration: thirty second fallback.
	assert.Equal(t, 40.0, parsed.Segments[0].EndTime)
}

func TestParseOtterExport_Invalid(t *testing.T) {
	var ve *model.ValidationError
	_, err := ParseOtterExport("too short")
	assert.ErrorAs(t, err, &ve)

	_, err = ParseOtterExport("Title\nDate line\nJust prose with no timestamps at all.\nMore prose.")
	assert.ErrorAs(t, err, &ve)
}

func TestPathMetadata(t *testing.T) {
	date, event := PathMetadata("/archive/20011015 - Town Hall/transcript.txt")
	require.NotNil(t, date)
	assert.Equal(t, time.Date(2001, 10, 15, 0, 0, 0, 0, time.UTC), *date)
	assert.Equal(t, "Town Hall", event)

	// Month-level folders resolve to the first of the month.
	date, event = PathMetadata("/archive/200110 - Agency Updates/notes.txt")
	require.NotNil(t, date)
	assert.Equal(t, time.Date(2001, 10, 1, 0, 0, 0, 0, time.UTC), *date)
	assert.Equal(t, "Agency Updates", event)

	date, event = PathMetadata("/plain/folder/file.txt")
	assert.Nil(t, date)
	assert.Empty(t, event)
}
