package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"storyreel/internal/config"
	"storyreel/internal/services"
)

// Service wraps the ffmpeg and ffprobe binaries for short-video assembly.
type Service struct {
	timeout       time.Duration
	commandRunner func(ctx context.Context, name string, args ...string) error
	probeRunner   func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewService creates an ffmpeg service from configuration.
func NewService(cfg *config.Config) *Service {
	return &Service{
		timeout: time.Duration(cfg.Video.TimeoutSeconds) * time.Second,
	}
}

// WithCommandRunner sets a custom ffmpeg runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// WithProbeRunner sets a custom ffprobe runner (for testing).
func (s *Service) WithProbeRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	s.probeRunner = runner
}

// Available reports whether both binaries can be found.
func (s *Service) Available() error {
	for _, binary := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(binary); err != nil {
			return services.Wrap(services.ErrPermanentFailure, "render", "locate tools",
				fmt.Sprintf("%s not found on PATH", binary), err)
		}
	}
	return nil
}

// MediaInfo summarizes the stream properties the renderer cares about.
type MediaInfo struct {
	DurationSeconds float64
	Width           int
	Height          int
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe inspects a media file with ffprobe.
func (s *Service) Probe(ctx context.Context, path string) (MediaInfo, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
	output, err := s.probe(ctx, "ffprobe", args...)
	if err != nil {
		return MediaInfo{}, services.Wrap(services.ErrInvalidInput, "render", "probe media",
			fmt.Sprintf("probe %s", path), err)
	}

	var parsed probeOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		return MediaInfo{}, services.Wrap(services.ErrInvalidInput, "render", "probe media",
			fmt.Sprintf("decode probe output for %s", path), err)
	}

	info := MediaInfo{}
	if parsed.Format.Duration != "" {
		if seconds, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
			info.DurationSeconds = seconds
		}
	}
	for _, stream := range parsed.Streams {
		if stream.CodecType == "video" {
			info.Width = stream.Width
			info.Height = stream.Height
			break
		}
	}
	if info.DurationSeconds <= 0 {
		return MediaInfo{}, services.Wrap(services.ErrInvalidInput, "render", "probe media",
			fmt.Sprintf("%s has no measurable duration", path), nil)
	}
	return info, nil
}

// AudioMix describes how narration and background music are combined.
type AudioMix struct {
	NarrationPath   string
	MusicPath       string
	OutputPath      string
	NarrationLUFS   float64
	MusicGainDB     float64
	DurationSeconds float64
	FadeSeconds     float64
}

// MixAudio loudness-normalizes the narration, lays looped background music
// under it at the configured gain, and trims the mix to the narration length
// with a closing fade.
func (s *Service) MixAudio(ctx context.Context, mix AudioMix) error {
	fadeStart := mix.DurationSeconds - mix.FadeSeconds
	if fadeStart < 0 {
		fadeStart = 0
	}
	filter := fmt.Sprintf(
		"[0:a]loudnorm=I=%s[narration];"+
			"[1:a]volume=%sdB[music];"+
			"[narration][music]amix=inputs=2:duration=first:dropout_transition=0[mixed];"+
			"[mixed]afade=t=out:st=%s:d=%s[out]",
		formatFloat(mix.NarrationLUFS),
		formatFloat(mix.MusicGainDB),
		formatFloat(fadeStart),
		formatFloat(mix.FadeSeconds),
	)
	args := []string{
		"-y",
		"-i", mix.NarrationPath,
		"-stream_loop", "-1",
		"-i", mix.MusicPath,
		"-filter_complex", filter,
		"-map", "[out]",
		"-t", formatFloat(mix.DurationSeconds),
		mix.OutputPath,
	}
	return s.runFFmpeg(ctx, "mix audio", args)
}

// VideoPrep describes background footage preparation.
type VideoPrep struct {
	SourcePath      string
	OutputPath      string
	Width           int
	Height          int
	FrameRate       int
	DurationSeconds float64
}

// PrepareVideo loops or trims the background footage to the target duration
// and center-crops it to the vertical frame.
func (s *Service) PrepareVideo(ctx context.Context, prep VideoPrep) error {
	// Crop to the target aspect ratio first, then scale, so sources of any
	// resolution land on the same output frame.
	filter := fmt.Sprintf(
		"crop=ih*%d/%d:ih,scale=%d:%d,fps=%d",
		prep.Width, prep.Height, prep.Width, prep.Height, prep.FrameRate,
	)
	args := []string{
		"-y",
		"-stream_loop", "-1",
		"-i", prep.SourcePath,
		"-t", formatFloat(prep.DurationSeconds),
		"-vf", filter,
		"-an",
		prep.OutputPath,
	}
	return s.runFFmpeg(ctx, "prepare video", args)
}

// Composition describes the final assembly pass.
type Composition struct {
	VideoPath     string
	AudioPath     string
	SubtitlesPath string
	OutputPath    string
}

// Compose burns the subtitle track into the prepared footage and muxes in the
// final audio mix.
func (s *Service) Compose(ctx context.Context, comp Composition) error {
	args := []string{
		"-y",
		"-i", comp.VideoPath,
		"-i", comp.AudioPath,
		"-vf", "ass=" + escapeFilterPath(comp.SubtitlesPath),
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "libx264",
		"-c:a", "aac",
		"-shortest",
		comp.OutputPath,
	}
	return s.runFFmpeg(ctx, "compose video", args)
}

func (s *Service) runFFmpeg(ctx context.Context, operation string, args []string) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := s.run(ctx, "ffmpeg", args...); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "render", operation, "ffmpeg timed out", err)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return services.Wrap(services.ErrTransient, "render", operation, "ffmpeg cancelled", ctx.Err())
		}
		return services.Wrap(services.ErrTransient, "render", operation, "run ffmpeg", err)
	}
	return nil
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, tail(string(output)))
	}
	return nil
}

func (s *Service) probe(ctx context.Context, name string, args ...string) ([]byte, error) {
	if s.probeRunner != nil {
		return s.probeRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Output()
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// escapeFilterPath escapes characters ffmpeg's filter parser treats specially.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(`\`, `\\`, ":", `\:`, "'", `\'`, ",", `\,`, "[", `\[`, "]", `\]`)
	return replacer.Replace(path)
}

// tail keeps the final lines of ffmpeg output, where the actual error lives.
func tail(output string) string {
	output = strings.TrimSpace(output)
	lines := strings.Split(output, "\n")
	if len(lines) > 8 {
		lines = lines[len(lines)-8:]
	}
	return strings.Join(lines, "\n")
}
