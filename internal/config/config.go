package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	OutputDir  string `toml:"output_dir"`
	AssetsDir  string `toml:"assets_dir"`
	LogDir     string `toml:"log_dir"`
}

// Reddit contains configuration for the story source.
type Reddit struct {
	Subreddit      string `toml:"subreddit"`
	Limit          int    `toml:"limit"`
	BaseURL        string `toml:"base_url"`
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TTS contains configuration for narration synthesis.
type TTS struct {
	APIKey         string `toml:"api_key"`
	VoiceID        string `toml:"voice_id"`
	ModelID        string `toml:"model_id"`
	OutputFormat   string `toml:"output_format"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Transcription contains configuration for subtitle timestamp generation.
type Transcription struct {
	Binary         string `toml:"binary"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Video contains configuration for the render pipeline.
type Video struct {
	Width          int     `toml:"width"`
	Height         int     `toml:"height"`
	FrameRate      int     `toml:"frame_rate"`
	NarrationLUFS  float64 `toml:"narration_lufs"`
	MusicGainDB    float64 `toml:"music_gain_db"`
	FadeSeconds    float64 `toml:"fade_seconds"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Subtitles contains configuration for subtitle chunking and styling.
type Subtitles struct {
	MaxChunkChars   int     `toml:"max_chunk_chars"`
	MaxChunkSeconds float64 `toml:"max_chunk_seconds"`
	FadeSeconds     float64 `toml:"fade_seconds"`
	FontName        string  `toml:"font_name"`
	FontSize        int     `toml:"font_size"`
}

// Pipeline contains retry and polling behavior.
type Pipeline struct {
	MaxRetries          int `toml:"max_retries"`
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for storyreel.
//
// Configuration sections by subsystem:
//   - Paths: staging, output, asset, and log directories
//   - Reddit: story source subreddit and request settings
//   - TTS: narration synthesis credentials and voice settings
//   - Transcription: whisper binary and model selection
//   - Video: render resolution, loudness, and timing
//   - Subtitles: chunk budgets and overlay styling
//   - Pipeline: retry cap and poll interval
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Reddit        Reddit        `toml:"reddit"`
	TTS           TTS           `toml:"tts"`
	Transcription Transcription `toml:"transcription"`
	Video         Video         `toml:"video"`
	Subtitles     Subtitles     `toml:"subtitles"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/storyreel/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. Secrets may be supplied through
// the environment (optionally via a .env file) and take precedence over the
// file contents.
func Load(path string) (*Config, string, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return &cfg, resolvedPath, nil
}

// applyEnv overlays secret material from the process environment. A .env file
// in the working directory is honored when present.
func (c *Config) applyEnv() {
	_ = godotenv.Load()
	if key := os.Getenv("ELEVENLABS_API_KEY"); key != "" {
		c.TTS.APIKey = key
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("storyreel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the staging, output, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// StoryDir returns the staging directory for a story's intermediate artifacts.
func (c *Config) StoryDir(storyID string) string {
	return filepath.Join(c.Paths.StagingDir, storyID)
}
