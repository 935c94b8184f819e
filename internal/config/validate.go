package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateReddit(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.StagingDir == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateReddit() error {
	if c.Reddit.Subreddit == "" {
		return errors.New("reddit.subreddit must be set")
	}
	if c.Reddit.Limit < 1 || c.Reddit.Limit > 100 {
		return fmt.Errorf("reddit.limit must be between 1 and 100, got %d", c.Reddit.Limit)
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		return errors.New("video.width and video.height must be positive")
	}
	if c.Video.Width >= c.Video.Height {
		return fmt.Errorf("video resolution %dx%d is not vertical", c.Video.Width, c.Video.Height)
	}
	if c.Video.NarrationLUFS > 0 {
		return errors.New("video.narration_lufs must be negative (LUFS)")
	}
	if c.Video.FadeSeconds < 0 {
		return errors.New("video.fade_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	if c.Subtitles.MaxChunkChars < 8 {
		return fmt.Errorf("subtitles.max_chunk_chars must be at least 8, got %d", c.Subtitles.MaxChunkChars)
	}
	if c.Subtitles.MaxChunkSeconds <= 0 {
		return errors.New("subtitles.max_chunk_seconds must be positive")
	}
	if c.Subtitles.FadeSeconds < 0 {
		return errors.New("subtitles.fade_seconds must not be negative")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.MaxRetries < 0 {
		return errors.New("pipeline.max_retries must not be negative")
	}
	if c.Pipeline.PollIntervalSeconds <= 0 {
		return errors.New("pipeline.poll_interval_seconds must be positive")
	}
	return nil
}
