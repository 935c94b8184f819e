package elevenlabs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"storyreel/internal/config"
	"storyreel/internal/services"
)

// Client synthesizes narration audio through the ElevenLabs streaming API.
type Client struct {
	baseURL      string
	apiKey       string
	voiceID      string
	modelID      string
	outputFormat string
	client       *http.Client
}

// NewClient builds a TTS client from configuration.
func NewClient(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.TTS.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.TTS.BaseURL, "/"),
		apiKey:       cfg.TTS.APIKey,
		voiceID:      cfg.TTS.VoiceID,
		modelID:      cfg.TTS.ModelID,
		outputFormat: cfg.TTS.OutputFormat,
		client:       &http.Client{Timeout: timeout},
	}
}

type synthesizeRequest struct {
	Text         string `json:"text"`
	ModelID      string `json:"model_id"`
	OutputFormat string `json:"output_format"`
}

// streamChunk is one newline-delimited JSON record of the with-timestamps
// stream: base64 audio plus per-character alignment for the chunk.
type streamChunk struct {
	AudioBase64 string     `json:"audio_base64"`
	Alignment   *alignment `json:"alignment"`
}

type alignment struct {
	Characters          []string  `json:"characters"`
	CharacterStartTimes []float64 `json:"character_start_times_seconds"`
	CharacterEndTimes   []float64 `json:"character_end_times_seconds"`
}

// Synthesize converts text to speech, writing the audio to audioPath and the
// merged character alignment to timestampsPath. Both files are written only
// on success; partial output is removed on failure.
func (c *Client) Synthesize(ctx context.Context, text, audioPath, timestampsPath string) error {
	if strings.TrimSpace(text) == "" {
		return services.Wrap(services.ErrInvalidInput, "tts", "synthesize", "narration text is empty", nil)
	}
	if strings.TrimSpace(c.apiKey) == "" {
		return services.Wrap(services.ErrInvalidInput, "tts", "synthesize", "api key is not configured", nil)
	}

	payload, err := json.Marshal(synthesizeRequest{
		Text:         text,
		ModelID:      c.modelID,
		OutputFormat: c.outputFormat,
	})
	if err != nil {
		return services.Wrap(services.ErrTransient, "tts", "synthesize", "encode request", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s/stream/with-timestamps", c.baseURL, c.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return services.Wrap(services.ErrTransient, "tts", "synthesize", "build request", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrServiceUnavailable, "tts", "synthesize", "call text-to-speech API", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return err
	}

	if err := c.consumeStream(resp.Body, audioPath, timestampsPath); err != nil {
		os.Remove(audioPath)
		os.Remove(timestampsPath)
		return err
	}
	return nil
}

func (c *Client) consumeStream(body io.Reader, audioPath, timestampsPath string) error {
	audio, err := os.Create(audioPath)
	if err != nil {
		return services.Wrap(services.ErrTransient, "tts", "synthesize", "create audio file", err)
	}
	defer audio.Close()

	merged := alignment{}
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk streamChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return services.Wrap(services.ErrTransient, "tts", "synthesize", "decode stream chunk", err)
		}
		if chunk.AudioBase64 != "" {
			audioBytes, err := base64.StdEncoding.DecodeString(chunk.AudioBase64)
			if err != nil {
				return services.Wrap(services.ErrTransient, "tts", "synthesize", "decode audio chunk", err)
			}
			if _, err := audio.Write(audioBytes); err != nil {
				return services.Wrap(services.ErrTransient, "tts", "synthesize", "write audio file", err)
			}
		}
		if chunk.Alignment != nil {
			merged.Characters = append(merged.Characters, chunk.Alignment.Characters...)
			merged.CharacterStartTimes = append(merged.CharacterStartTimes, chunk.Alignment.CharacterStartTimes...)
			merged.CharacterEndTimes = append(merged.CharacterEndTimes, chunk.Alignment.CharacterEndTimes...)
		}
	}
	if err := scanner.Err(); err != nil {
		return services.Wrap(services.ErrServiceUnavailable, "tts", "synthesize", "read response stream", err)
	}
	if err := audio.Close(); err != nil {
		return services.Wrap(services.ErrTransient, "tts", "synthesize", "flush audio file", err)
	}

	if len(merged.Characters) == 0 {
		return services.Wrap(services.ErrServiceUnavailable, "tts", "synthesize", "stream carried no alignment data", nil)
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return services.Wrap(services.ErrTransient, "tts", "synthesize", "encode alignment data", err)
	}
	if err := os.WriteFile(timestampsPath, data, 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "tts", "synthesize", "write alignment file", err)
	}
	return nil
}

func classifyStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	detail := fmt.Sprintf("text-to-speech API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return services.Wrap(services.ErrQuotaExceeded, "tts", "synthesize", detail, nil)
	case resp.StatusCode >= 500:
		return services.Wrap(services.ErrServiceUnavailable, "tts", "synthesize", detail, nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return services.Wrap(services.ErrPermanentFailure, "tts", "synthesize", detail, nil)
	default:
		return services.Wrap(services.ErrInvalidInput, "tts", "synthesize", detail, nil)
	}
}
