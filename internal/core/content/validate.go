package content

import (
	"fmt"
	"strings"

	"github.com/joesh-del/video-management/internal/core/model"
)

// validateBatch checks a candidate batch against the segments already
// stored for the parent. Any violation fails the whole batch; nothing is
// persisted. Indices may leave gaps but must strictly increase, both
// within the batch and past the highest stored index, and no candidate may
// overlap a sibling in time.
func validateBatch(existing []model.Segment, batch []model.NewSegment) error {
	if len(batch) == 0 {
		return model.Validationf("", "empty segment batch")
	}

	maxIndex := -1
	for _, s := range existing {
		if s.Index > maxIndex {
			maxIndex = s.Index
		}
	}

	prevIndex := maxIndex
	var prevEnd float64 = -1
	for i := range batch {
		seg := &batch[i]
		field := fmt.Sprintf("segment %d", seg.Index)

		if seg.StartTime < 0 {
			return model.Validationf(field, "start time %.3f is negative", seg.StartTime)
		}
		if seg.StartTime >= seg.EndTime {
			return model.Validationf(field, "start %.3f must be before end %.3f", seg.StartTime, seg.EndTime)
		}
		if strings.TrimSpace(seg.Text) == "" {
			return model.Validationf(field, "text is empty")
		}
		if seg.Index <= prevIndex {
			return model.Validationf(field, "segment index must exceed %d", prevIndex)
		}
		if seg.StartTime < prevEnd {
			return model.Validationf(field, "overlaps preceding batch segment ending at %.3f", prevEnd)
		}
		for _, st := range existing {
			if seg.StartTime < st.EndTime && st.StartTime < seg.EndTime {
				return model.Validationf(field, "overlaps stored segment %d (%.3f-%.3f)", st.Index, st.StartTime, st.EndTime)
			}
		}
		prevIndex = seg.Index
		prevEnd = seg.EndTime
	}
	return nil
}

// knownExtraKeys is the enumerated extension key set for content items.
// Anything else must live under the "other." bucket.
var knownExtraKeys = map[string]bool{
	"event_name": true,
	"event_date": true,
	"location":   true,
	"language":   true,
	"source_url": true,
	"notes":      true,
}

func validateExtra(extra map[string]string) error {
	for k := range extra {
		if knownExtraKeys[k] || strings.HasPrefix(k, "other.") {
			continue
		}
		return model.Validationf("extra", "unknown key %q (use an enumerated key or the other.* bucket)", k)
	}
	return nil
}
