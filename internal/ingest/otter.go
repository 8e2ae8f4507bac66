// Package ingest parses Otter-style transcript exports into content item
// metadata and candidate segments.
package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joesh-del/video-management/internal/core/model"
)

// ParsedTranscript is the materialized form of one export: metadata from
// the header block plus ordered candidate segments ready for append.
type ParsedTranscript struct {
	Title           string
	RecordingDate   *time.Time
	DurationSeconds float64
	Keywords        []string
	Speakers        []string
	Segments        []model.NewSegment
}

var (
	// "Speaker Name  00:16" or a bare "1:02:16" starts a new segment.
	timestampLine = regexp.MustCompile(`^(.*?)\s*(\d+:\d+(?::\d+)?)\s*$`)
	longDate      = regexp.MustCompile(`\w+, \w+ \d+, \d{4}`)
	isoDate       = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	compactDate   = regexp.MustCompile(`\d{8}`)
	trailingClock = regexp.MustCompile(`(\d+:\d+(?::\d+)?)\s*$`)
)

// ParseOtterExport parses the plain-text Otter layout:
//
//	line 1: title
//	line 2: date and duration ("Fri, Dec 05, 2025 10:47AM • 21:01")
//	"SUMMARY KEYWORDS" / comma list, "SPEAKERS" / comma list
//	then alternating "Speaker MM:SS" and transcript paragraphs.
//
// A segment's end time is the next segment's start, else the recording
// duration, else start plus thirty seconds.
func ParseOtterExport(text string) (*ParsedTranscript, error) {
	var paragraphs []string
	for _, line := range strings.Split(text, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			paragraphs = append(paragraphs, t)
		}
	}
	if len(paragraphs) < 3 {
		return nil, model.Validationf("transcript", "export too short to parse")
	}

	out := &ParsedTranscript{Title: paragraphs[0]}
	parseHeaderDate(out, paragraphs[1])

	// Keyword/speaker header pairs sit in the first handful of lines.
	body := 2
	for i := 2; i < len(paragraphs) && i < 10; i++ {
		switch paragraphs[i] {
		case "SUMMARY KEYWORDS":
			if i+1 < len(paragraphs) {
				out.Keywords = splitList(paragraphs[i+1])
				body = i + 2
			}
		case "SPEAKERS":
			if i+1 < len(paragraphs) {
				out.Speakers = splitList(paragraphs[i+1])
				body = i + 2
			}
		}
	}

	var (
		currentSpeaker string
		currentStart   = -1.0
		currentText    []string
		index          int
	)
	flush := func() {
		if currentStart < 0 || len(currentText) == 0 {
			return
		}
		out.Segments = append(out.Segments, model.NewSegment{
			Index:     index,
			StartTime: currentStart,
			Speaker:   currentSpeaker,
			Text:      strings.Join(currentText, " "),
		})
		index++
	}

	for _, para := range paragraphs[body:] {
		m := timestampLine.FindStringSubmatch(para)
		if m != nil {
			flush()
			if speaker := strings.TrimSpace(m[1]); speaker != "" {
				currentSpeaker = speaker
			}
			currentStart = clockToSeconds(m[2])
			currentText = nil
			continue
		}
		if para == "SUMMARY KEYWORDS" || para == "SPEAKERS" {
			continue
		}
		currentText = append(currentText, para)
	}
	flush()

	if len(out.Segments) == 0 {
		return nil, model.Validationf("transcript", "no segments found in export")
	}

	for i := range out.Segments {
		switch {
		case i+1 < len(out.Segments):
			out.Segments[i].EndTime = out.Segments[i+1].StartTime
		case out.DurationSeconds > out.Segments[i].StartTime:
			out.Segments[i].EndTime = out.DurationSeconds
		default:
			out.Segments[i].EndTime = out.Segments[i].StartTime + 30
		}
	}
	return out, nil
}

func parseHeaderDate(out *ParsedTranscript, line string) {
	if m := longDate.FindString(line); m != "" {
		if t, err := time.Parse("Mon, Jan 02, 2006", m); err == nil {
			out.RecordingDate = &t
		}
	}
	if out.RecordingDate == nil {
		if m := isoDate.FindString(line); m != "" {
			if t, err := time.Parse("2006-01-02", m); err == nil {
				out.RecordingDate = &t
			}
		}
	}
	if out.RecordingDate == nil {
		if m := compactDate.FindString(line); m != "" {
			if t, err := time.Parse("20060102", m); err == nil {
				out.RecordingDate = &t
			}
		}
	}
	if m := trailingClock.FindStringSubmatch(line); m != nil {
		out.DurationSeconds = clockToSeconds(m[1])
	}
}

func clockToSeconds(clock string) float64 {
	parts := strings.Split(clock, ":")
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return float64(total)
}

func splitList(line string) []string {
	var out []string
	for _, part := range strings.Split(line, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

var (
	folderDate     = regexp.MustCompile(`(\d{8})`)
	folderMonth    = regexp.MustCompile(`(\d{6}) -`)
	eventSeparator = " - "
)

// PathMetadata extracts a recording date and event name from archive
// folder conventions like "20011015 - Town Hall/talk.mp3". Used when the
// export header carries no parseable date.
func PathMetadata(path string) (eventDate *time.Time, eventName string) {
	if m := folderDate.FindString(path); m != "" {
		if t, err := time.Parse("20060102", m); err == nil {
			eventDate = &t
		}
	}
	if eventDate == nil {
		if m := folderMonth.FindStringSubmatch(path); m != nil {
			if t, err := time.Parse("20060102", m[1]+"01"); err == nil {
				eventDate = &t
			}
		}
	}
	for _, part := range strings.Split(path, "/") {
		if i := strings.Index(part, eventSeparator); i >= 0 {
			if name := strings.TrimSpace(part[i+len(eventSeparator):]); name != "" {
				eventName = name
				break
			}
		}
	}
	return eventDate, eventName
}
