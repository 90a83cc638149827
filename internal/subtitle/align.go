package subtitle

import "math"

// DefaultTolerance is the timeline matching tolerance in seconds.
const DefaultTolerance = 0.1

// epsilon absorbs float rounding when comparing against the tolerance.
const epsilon = 1e-9

// Aligner merges two subtitle timelines into bilingual segments. The
// reference track drives the output timeline; every reference cue produces
// exactly one bilingual segment.
type Aligner struct {
	tolerance float64
}

// NewAligner returns an aligner with the given matching tolerance in seconds.
// A non-positive tolerance falls back to the default.
func NewAligner(tolerance float64) *Aligner {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Aligner{tolerance: tolerance}
}

// Tolerance returns the matching tolerance in seconds.
func (a *Aligner) Tolerance() float64 {
	return a.tolerance
}

// Align pairs each reference segment with the best-matching text from other.
// Matching prefers timeline overlap (within tolerance, closest start wins),
// falls back to equal sequence numbers, and finally reuses the reference text
// so no reference cue is ever dropped. The merged timeline then has small
// gaps snapped shut and degenerate cue times repaired before resequencing.
func (a *Aligner) Align(reference, other []Segment) []BilingualSegment {
	if len(reference) == 0 {
		return nil
	}

	merged := make([]BilingualSegment, 0, len(reference))
	for _, ref := range reference {
		text, matched := a.matchText(ref, other)
		merged = append(merged, BilingualSegment{
			Start:     ref.Start,
			End:       ref.End,
			Primary:   ref.Text,
			Secondary: text,
			Matched:   matched,
		})
	}

	a.syncTimeline(merged)
	for i := range merged {
		merged[i].Sequence = i + 1
	}
	return merged
}

func (a *Aligner) matchText(ref Segment, other []Segment) (string, bool) {
	best := -1
	bestDistance := math.Inf(1)
	for i, candidate := range other {
		if !a.overlaps(ref, candidate) {
			continue
		}
		distance := math.Abs(candidate.Start - ref.Start)
		if distance < bestDistance {
			best = i
			bestDistance = distance
		}
	}
	if best >= 0 {
		return other[best].Text, true
	}

	for _, candidate := range other {
		if candidate.Sequence == ref.Sequence {
			return candidate.Text, true
		}
	}
	return ref.Text, false
}

// overlaps reports whether two cues share any part of the timeline once the
// tolerance is applied. Boundary contact counts as overlap.
func (a *Aligner) overlaps(ref, other Segment) bool {
	return ref.Start-a.tolerance <= other.End+epsilon &&
		other.Start-a.tolerance <= ref.End+epsilon
}

// syncTimeline snaps sub-tolerance gaps between consecutive cues shut and
// repairs cues whose end does not advance past their start.
func (a *Aligner) syncTimeline(segments []BilingualSegment) {
	for i := range segments {
		if i > 0 {
			prevEnd := segments[i-1].End
			if math.Abs(segments[i].Start-prevEnd) <= a.tolerance+epsilon {
				segments[i].Start = prevEnd
			}
		}
		if segments[i].End <= segments[i].Start {
			segments[i].End = segments[i].Start + 1.0
		}
	}
}
