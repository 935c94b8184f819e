package subtitles

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Segment is a timed span of narration text. Times are seconds from the start
// of the audio track.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the timestamp artifact recorded for a subtitled story.
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// ParseTranscript decodes a timestamp artifact produced by the subtitle
// stage. Segments are normalized: text trimmed, empty segments dropped, and
// ordering by start time enforced.
func ParseTranscript(data []byte) (*Transcript, error) {
	var transcript Transcript
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	cleaned := make([]Segment, 0, len(transcript.Segments))
	for _, segment := range transcript.Segments {
		segment.Text = strings.TrimSpace(segment.Text)
		if segment.Text == "" {
			continue
		}
		if segment.End < segment.Start {
			return nil, fmt.Errorf("segment %q ends before it starts (%.2f < %.2f)", segment.Text, segment.End, segment.Start)
		}
		cleaned = append(cleaned, segment)
	}
	sort.SliceStable(cleaned, func(i, j int) bool {
		return cleaned[i].Start < cleaned[j].Start
	})
	transcript.Segments = cleaned
	return &transcript, nil
}

// characterTiming mirrors the alignment block of an ElevenLabs
// with-timestamps response: one entry per character with its start and end
// offsets in seconds.
type characterTiming struct {
	Characters          []string  `json:"characters"`
	CharacterStartTimes []float64 `json:"character_start_times_seconds"`
	CharacterEndTimes   []float64 `json:"character_end_times_seconds"`
}

// ParseCharacterTimings converts ElevenLabs per-character alignment data into
// word-level segments. Words are delimited by whitespace characters in the
// alignment stream.
func ParseCharacterTimings(data []byte) ([]Segment, error) {
	var timing characterTiming
	if err := json.Unmarshal(data, &timing); err != nil {
		return nil, fmt.Errorf("decode character timings: %w", err)
	}
	if len(timing.Characters) != len(timing.CharacterStartTimes) || len(timing.Characters) != len(timing.CharacterEndTimes) {
		return nil, fmt.Errorf("character timing arrays disagree: %d characters, %d starts, %d ends",
			len(timing.Characters), len(timing.CharacterStartTimes), len(timing.CharacterEndTimes))
	}

	var segments []Segment
	var word strings.Builder
	var wordStart float64
	var wordEnd float64

	flush := func() {
		if word.Len() == 0 {
			return
		}
		segments = append(segments, Segment{Start: wordStart, End: wordEnd, Text: word.String()})
		word.Reset()
	}

	for i, ch := range timing.Characters {
		if ch == "" || isSpace(ch) {
			flush()
			continue
		}
		if word.Len() == 0 {
			wordStart = timing.CharacterStartTimes[i]
		}
		word.WriteString(ch)
		wordEnd = timing.CharacterEndTimes[i]
	}
	flush()
	return segments, nil
}

func isSpace(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
