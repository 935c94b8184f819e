package store

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a story.
type Status string

const (
	StatusCrawled           Status = "crawled"
	StatusScripted          Status = "scripted"
	StatusVoiced            Status = "voiced"
	StatusSubtitled         Status = "subtitled"
	StatusReady             Status = "ready"
	StatusProcessing        Status = "processing"
	StatusRendered          Status = "rendered"
	StatusError             Status = "error"
	StatusPermanentlyFailed Status = "permanently_failed"
)

var allStatuses = []Status{
	StatusCrawled,
	StatusScripted,
	StatusVoiced,
	StatusSubtitled,
	StatusReady,
	StatusProcessing,
	StatusRendered,
	StatusError,
	StatusPermanentlyFailed,
}

// statusRank orders the forward progression. Error states carry no rank.
var statusRank = map[Status]int{
	StatusCrawled:    0,
	StatusScripted:   1,
	StatusVoiced:     2,
	StatusSubtitled:  3,
	StatusReady:      4,
	StatusProcessing: 5,
	StatusRendered:   6,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether no further automatic processing applies.
func (s Status) IsTerminal() bool {
	return s == StatusRendered || s == StatusPermanentlyFailed
}

// Stage identifies the pipeline step an error occurred in. The retry target is
// a pure function of the stage tag.
type Stage string

const (
	StageScript     Stage = "script"
	StageTTS        Stage = "tts"
	StageSubtitle   Stage = "subtitle"
	StageValidation Stage = "validation"
	StageRender     Stage = "render"
	StageCancelled  Stage = "cancelled"
)

var allStages = []Stage{StageScript, StageTTS, StageSubtitle, StageValidation, StageRender, StageCancelled}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	for _, stage := range allStages {
		if stage == normalized {
			return normalized, true
		}
	}
	return "", false
}

// ResumeStatus returns the status a retry re-enters at: the last status whose
// artifact survived the failure. Completed stages are never re-run.
func (s Stage) ResumeStatus() Status {
	switch s {
	case StageScript:
		return StatusCrawled
	case StageTTS:
		return StatusScripted
	case StageSubtitle:
		return StatusVoiced
	case StageValidation:
		return StatusSubtitled
	case StageRender, StageCancelled:
		return StatusReady
	default:
		return StatusCrawled
	}
}

// Story is the central entity tracked through both pipelines.
type Story struct {
	ID        string
	Title     string
	Author    string
	Subreddit string
	URL       string
	Body      string
	Status    Status

	// Artifact paths, populated exactly when the corresponding stage has run.
	ScriptPath     string
	AudioPath      string
	TimestampsPath string
	VideoPath      string

	ErrorStage   Stage
	ErrorMessage string
	RetryCount   int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ArtifactPaths returns the populated artifact paths in stage order.
func (s *Story) ArtifactPaths() []string {
	var paths []string
	for _, p := range []string{s.ScriptPath, s.AudioPath, s.TimestampsPath, s.VideoPath} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// artifactRequired maps each status to the artifact field a story must carry
// once it has reached that status.
type artifactField int

const (
	artifactNone artifactField = iota
	artifactScript
	artifactAudio
	artifactTimestamps
	artifactVideo
)

func requiredArtifact(status Status) artifactField {
	switch status {
	case StatusScripted:
		return artifactScript
	case StatusVoiced:
		return artifactAudio
	case StatusSubtitled:
		return artifactTimestamps
	case StatusRendered:
		return artifactVideo
	default:
		return artifactNone
	}
}

func (s *Story) artifact(field artifactField) string {
	switch field {
	case artifactScript:
		return s.ScriptPath
	case artifactAudio:
		return s.AudioPath
	case artifactTimestamps:
		return s.TimestampsPath
	case artifactVideo:
		return s.VideoPath
	default:
		return ""
	}
}

func (s *Story) setArtifact(field artifactField, path string) {
	switch field {
	case artifactScript:
		s.ScriptPath = path
	case artifactAudio:
		s.AudioPath = path
	case artifactTimestamps:
		s.TimestampsPath = path
	case artifactVideo:
		s.VideoPath = path
	}
}

// CheckArtifactInvariant verifies that every artifact at or below the story's
// status rank is populated and every artifact above it is empty. Error states
// are checked against the stage they failed in.
func (s *Story) CheckArtifactInvariant() bool {
	rank, ok := statusRank[s.Status]
	if !ok {
		rank, ok = statusRank[s.ErrorStage.ResumeStatus()]
		if !ok {
			return false
		}
	}
	for status, statusPos := range statusRank {
		field := requiredArtifact(status)
		if field == artifactNone {
			continue
		}
		populated := s.artifact(field) != ""
		if statusPos <= rank && !populated {
			return false
		}
		if statusPos > rank && populated {
			return false
		}
	}
	return true
}
