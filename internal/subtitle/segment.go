package subtitle

// Segment is a single timed cue from one subtitle track. Times are seconds
// from the start of the media.
type Segment struct {
	Sequence int
	Start    float64
	End      float64
	Text     string
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Track is an ordered list of segments in one language.
type Track struct {
	Language string
	Segments []Segment
}

// BilingualSegment pairs a reference cue with the best-matching text from the
// other track. Matched is false when the pairing fell back to the reference
// text.
type BilingualSegment struct {
	Sequence  int
	Start     float64
	End       float64
	Primary   string
	Secondary string
	Matched   bool
}
