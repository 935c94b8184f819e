package textutil

import (
	"strings"
	"testing"
)

func TestCleanStoryText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "markdown link keeps label",
			input: "see [this thread](https://reddit.com/r/tifu/abc) for context",
			want:  "see this thread for context",
		},
		{
			name:  "bare url removed",
			input: "proof here https://imgur.com/xyz trust me",
			want:  "proof here trust me",
		},
		{
			name:  "emphasis stripped",
			input: "I was **terrified** and _alone_",
			want:  "I was terrified and alone",
		},
		{
			name:  "headings and quotes stripped",
			input: "# Update\n> original post below\nthe story",
			want:  "Update\noriginal post below\nthe story",
		},
		{
			name:  "html entities decoded",
			input: "cats &amp; dogs",
			want:  "cats & dogs",
		},
		{
			name:  "blank lines collapsed",
			input: "first\n\n\n\nsecond",
			want:  "first\n\nsecond",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanStoryText(tt.input)
			if got != tt.want {
				t.Errorf("CleanStoryText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeriveScript(t *testing.T) {
	got := DeriveScript("TIFU by testing in production", "It all started on a Friday.")
	want := "TIFU by testing in production.\n\nIt all started on a Friday."
	if got != want {
		t.Errorf("DeriveScript() = %q, want %q", got, want)
	}

	if got := DeriveScript("Already punctuated!", ""); got != "Already punctuated!" {
		t.Errorf("title-only script = %q", got)
	}
	if got := DeriveScript("", "body only"); got != "body only" {
		t.Errorf("body-only script = %q", got)
	}
}

func TestSanitizeFileName(t *testing.T) {
	got := SanitizeFileName(` TIFU: by asking "why?" <again> `)
	if strings.ContainsAny(got, `/\:*?"<>|`) {
		t.Errorf("unsafe characters survived: %q", got)
	}
	if got != "TIFU- by asking why again" {
		t.Errorf("SanitizeFileName() = %q", got)
	}
}

func TestFingerprintRepostDetection(t *testing.T) {
	original := NewFingerprint("TIFU by leaving the oven on during my sister's wedding reception")
	repost := NewFingerprint("TIFU by leaving the oven on during my sister's wedding party")
	unrelated := NewFingerprint("AITA for refusing to share my lottery winnings with coworkers")

	if sim := CosineSimilarity(original, repost); sim < 0.8 {
		t.Errorf("near-duplicate similarity = %v, want >= 0.8", sim)
	}
	if sim := CosineSimilarity(original, unrelated); sim > 0.3 {
		t.Errorf("unrelated similarity = %v, want <= 0.3", sim)
	}
	if CosineSimilarity(original, original) != 1.0 {
		t.Error("self similarity must be 1.0")
	}
}

func TestFingerprintEmpty(t *testing.T) {
	if NewFingerprint("a an I") != nil {
		t.Error("short-token-only text must produce a nil fingerprint")
	}
	if CosineSimilarity(nil, NewFingerprint("hello world")) != 0 {
		t.Error("nil fingerprint similarity must be 0")
	}
}
