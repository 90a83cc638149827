// Package subtitle parses WebVTT and SRT tracks, aligns two language
// timelines into bilingual segments, and writes the merged track back out as
// SRT.
//
// The aligner is reference-driven: every cue of the reference track appears
// in the output exactly once, paired with the closest overlapping cue from
// the other track when one exists.
package subtitle
