package subtitles

import (
	"fmt"
	"math"
	"os"
	"strings"
)

// Style controls how burned-in subtitles are rendered.
type Style struct {
	FontName    string
	FontSize    int
	PlayResX    int
	PlayResY    int
	FadeSeconds float64
}

const assHeader = `[Script Info]
ScriptType: v4.00+
PlayResX: %d
PlayResY: %d
WrapStyle: 0
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Narration,%s,%d,&H00FFFFFF,&H00FFFFFF,&H00000000,&H80000000,-1,0,0,0,100,100,0,0,1,3,1,5,40,40,40,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`

// WriteASS renders chunks as an ASS subtitle script at path. Each dialogue
// line carries a fade-in/fade-out so chunks do not pop on screen.
func WriteASS(path string, chunks []Segment, style Style) error {
	var b strings.Builder
	fmt.Fprintf(&b, assHeader, style.PlayResX, style.PlayResY, style.FontName, style.FontSize)

	fadeMillis := int(math.Round(style.FadeSeconds * 1000))
	for _, chunk := range chunks {
		text := escapeASSText(chunk.Text)
		if fadeMillis > 0 {
			text = fmt.Sprintf(`{\fad(%d,%d)}%s`, fadeMillis, fadeMillis, text)
		}
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Narration,,0,0,0,,%s\n",
			formatASSTime(chunk.Start), formatASSTime(chunk.End), text)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write subtitle script: %w", err)
	}
	return nil
}

// formatASSTime renders seconds as H:MM:SS.cc (centisecond precision, per the
// ASS timestamp format).
func formatASSTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	centis := int(math.Round(seconds * 100))
	hours := centis / 360000
	centis -= hours * 360000
	minutes := centis / 6000
	centis -= minutes * 6000
	secs := centis / 100
	centis -= secs * 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centis)
}

func escapeASSText(text string) string {
	text = strings.ReplaceAll(text, "\\", `\\`)
	text = strings.ReplaceAll(text, "{", `\{`)
	text = strings.ReplaceAll(text, "}", `\}`)
	text = strings.ReplaceAll(text, "\n", `\N`)
	return text
}
