package subtitles

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteASS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.ass")
	chunks := []Segment{
		{Start: 0, End: 2.5, Text: "First chunk"},
		{Start: 2.5, End: 5, Text: "Second {with} braces"},
	}
	style := Style{
		FontName:    "Arial",
		FontSize:    64,
		PlayResX:    1080,
		PlayResY:    1920,
		FadeSeconds: 0.15,
	}
	if err := WriteASS(path, chunks, style); err != nil {
		t.Fatalf("WriteASS: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	content := string(data)

	for _, want := range []string{
		"PlayResX: 1080",
		"PlayResY: 1920",
		"Style: Narration,Arial,64",
		`{\fad(150,150)}First chunk`,
		"Dialogue: 0,0:00:00.00,0:00:02.50,Narration,,0,0,0,,",
		"Dialogue: 0,0:00:02.50,0:00:05.00,Narration,,0,0,0,,",
		`Second \{with\} braces`,
	} {
		if !strings.Contains(content, want) {
			t.Errorf("missing %q in output:\n%s", want, content)
		}
	}
}

func TestWriteASSNoFade(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.ass")
	err := WriteASS(path, []Segment{{Start: 1, End: 2, Text: "plain"}}, Style{
		FontName: "Arial", FontSize: 48, PlayResX: 1080, PlayResY: 1920,
	})
	if err != nil {
		t.Fatalf("WriteASS: %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), `\fad`) {
		t.Error("fade tag present with zero fade duration")
	}
}

func TestFormatASSTime(t *testing.T) {
	cases := map[float64]string{
		0:       "0:00:00.00",
		61.25:   "0:01:01.25",
		3599.99: "0:59:59.99",
		3661.5:  "1:01:01.50",
		-1:      "0:00:00.00",
	}
	for in, want := range cases {
		if got := formatASSTime(in); got != want {
			t.Errorf("formatASSTime(%v) = %q, want %q", in, got, want)
		}
	}
}
