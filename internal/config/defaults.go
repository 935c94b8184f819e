package config

const (
	defaultStagingDir     = "~/.local/share/storyreel/staging"
	defaultOutputDir      = "~/.local/share/storyreel/output"
	defaultAssetsDir      = "~/.local/share/storyreel/assets"
	defaultLogDir         = "~/.local/share/storyreel/logs"
	defaultSubreddit      = "tifu"
	defaultRedditLimit    = 10
	defaultRedditBaseURL  = "https://www.reddit.com"
	defaultUserAgent      = "storyreel/dev"
	defaultRedditTimeout  = 30
	defaultVoiceID        = "YFpUSo240svj7tcmDapZ"
	defaultTTSModelID     = "eleven_turbo_v2_5"
	defaultTTSFormat      = "mp3_44100_128"
	defaultTTSBaseURL     = "https://api.elevenlabs.io"
	defaultTTSTimeout     = 120
	defaultWhisperBinary  = "whisper"
	defaultWhisperModel   = "base"
	defaultWhisperTimeout = 600
	defaultVideoWidth     = 1080
	defaultVideoHeight    = 1920
	defaultFrameRate      = 30
	defaultNarrationLUFS  = -16.0
	defaultMusicGainDB    = -12.0
	defaultFadeSeconds    = 0.5
	defaultRenderTimeout  = 1800
	defaultChunkChars     = 40
	defaultChunkSeconds   = 4.0
	defaultChunkFade      = 0.15
	defaultFontName       = "Arial"
	defaultFontSize       = 64
	defaultMaxRetries     = 3
	defaultPollInterval   = 5
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			AssetsDir:  defaultAssetsDir,
			LogDir:     defaultLogDir,
		},
		Reddit: Reddit{
			Subreddit:      defaultSubreddit,
			Limit:          defaultRedditLimit,
			BaseURL:        defaultRedditBaseURL,
			UserAgent:      defaultUserAgent,
			TimeoutSeconds: defaultRedditTimeout,
		},
		TTS: TTS{
			VoiceID:        defaultVoiceID,
			ModelID:        defaultTTSModelID,
			OutputFormat:   defaultTTSFormat,
			BaseURL:        defaultTTSBaseURL,
			TimeoutSeconds: defaultTTSTimeout,
		},
		Transcription: Transcription{
			Binary:         defaultWhisperBinary,
			Model:          defaultWhisperModel,
			TimeoutSeconds: defaultWhisperTimeout,
		},
		Video: Video{
			Width:          defaultVideoWidth,
			Height:         defaultVideoHeight,
			FrameRate:      defaultFrameRate,
			NarrationLUFS:  defaultNarrationLUFS,
			MusicGainDB:    defaultMusicGainDB,
			FadeSeconds:    defaultFadeSeconds,
			TimeoutSeconds: defaultRenderTimeout,
		},
		Subtitles: Subtitles{
			MaxChunkChars:   defaultChunkChars,
			MaxChunkSeconds: defaultChunkSeconds,
			FadeSeconds:     defaultChunkFade,
			FontName:        defaultFontName,
			FontSize:        defaultFontSize,
		},
		Pipeline: Pipeline{
			MaxRetries:          defaultMaxRetries,
			PollIntervalSeconds: defaultPollInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
