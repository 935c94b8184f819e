package subtitles

import "strings"

// Budget bounds the size of a single on-screen chunk.
type Budget struct {
	MaxChars   int
	MaxSeconds float64
}

// Chunk splits segments into display chunks that respect the budget. Words
// are packed greedily; a segment that overflows either limit is split and
// each piece receives a proportional, contiguous share of the segment's time
// span so chunks never overlap and never leave gaps inside a segment.
func Chunk(segments []Segment, budget Budget) []Segment {
	if budget.MaxChars <= 0 && budget.MaxSeconds <= 0 {
		return segments
	}

	var chunks []Segment
	for _, segment := range segments {
		chunks = append(chunks, chunkSegment(segment, budget)...)
	}
	return chunks
}

func chunkSegment(segment Segment, budget Budget) []Segment {
	words := strings.Fields(segment.Text)
	if len(words) == 0 {
		return nil
	}

	duration := segment.End - segment.Start
	perChar := 0.0
	totalChars := len(segment.Text)
	if totalChars > 0 {
		perChar = duration / float64(totalChars)
	}

	var groups []string
	var current strings.Builder
	for _, word := range words {
		candidate := word
		if current.Len() > 0 {
			candidate = current.String() + " " + word
		}
		overChars := budget.MaxChars > 0 && len(candidate) > budget.MaxChars
		overTime := budget.MaxSeconds > 0 && perChar*float64(len(candidate)) > budget.MaxSeconds
		if current.Len() > 0 && (overChars || overTime) {
			groups = append(groups, current.String())
			current.Reset()
			current.WriteString(word)
			continue
		}
		current.Reset()
		current.WriteString(candidate)
	}
	if current.Len() > 0 {
		groups = append(groups, current.String())
	}

	// Allocate the segment's span across groups proportionally to their
	// character counts, keeping chunk boundaries contiguous.
	groupChars := 0
	for _, group := range groups {
		groupChars += len(group)
	}
	out := make([]Segment, 0, len(groups))
	cursor := segment.Start
	for i, group := range groups {
		end := segment.End
		if i < len(groups)-1 && groupChars > 0 {
			end = cursor + duration*float64(len(group))/float64(groupChars)
		}
		out = append(out, Segment{Start: cursor, End: end, Text: group})
		cursor = end
	}
	return out
}
