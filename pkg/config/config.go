package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Request   RequestConfig   `yaml:"request"`
	Log       LogConfig       `yaml:"log"`
	DB        DBConfig        `yaml:"db"`
	Tour      TourConfig      `yaml:"tour"`
	ImageGen  ImageGenConfig  `yaml:"imagegen"`
	TTS       TTSConfig       `yaml:"tts"`
	Video     VideoConfig     `yaml:"video"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// TourConfig holds settings for the upstream tour generation service.
type TourConfig struct {
	BaseURL      string   `yaml:"base_url"`
	Key          string   `yaml:"key"`
	PollInterval Duration `yaml:"poll_interval"`
	MaxWait      Duration `yaml:"max_wait"`
	// MinNarrations is the number of completed narrations required before the
	// poller reports ready. 0 means all expected narrations.
	MinNarrations int `yaml:"min_narrations"`
}

// GeminiConfig holds settings for the Gemini image provider.
type GeminiConfig struct {
	Key   string `yaml:"key"`
	Model string `yaml:"model"`
}

// PollinationsConfig holds settings for the Pollinations image provider.
type PollinationsConfig struct {
	Model string `yaml:"model"`
}

// StockConfig holds settings for the stock-photo fallback provider.
type StockConfig struct {
	BaseURL string `yaml:"base_url"`
}

// ImageGenConfig holds image acquisition settings.
type ImageGenConfig struct {
	Gemini        GeminiConfig       `yaml:"gemini"`
	Pollinations  PollinationsConfig `yaml:"pollinations"`
	Stock         StockConfig        `yaml:"stock"`
	MaxPerStop    int                `yaml:"max_per_stop"`
	MinImageBytes int64              `yaml:"min_image_bytes"`
}

// ElevenLabsConfig holds settings for ElevenLabs TTS.
type ElevenLabsConfig struct {
	Key     string `yaml:"key"`
	VoiceID string `yaml:"voice"`
	Model   string `yaml:"model"`
}

// PollyVoiceConfig holds settings for the Pollinations audio fallback.
type PollyVoiceConfig struct {
	Voice string `yaml:"voice"`
}

// TTSConfig holds Text-To-Speech settings.
type TTSConfig struct {
	Engine       string           `yaml:"engine"`
	ElevenLabs   ElevenLabsConfig `yaml:"elevenlabs"`
	Pollinations PollyVoiceConfig `yaml:"pollinations"`
}

// VideoConfig holds timeline and encoder settings.
type VideoConfig struct {
	Width              int      `yaml:"width"`
	Height             int      `yaml:"height"`
	FPS                int      `yaml:"fps"`
	SecondsPerImage    float64  `yaml:"seconds_per_image"`
	MaxDuration        Duration `yaml:"max_duration"`
	TransitionDuration Duration `yaml:"transition_duration"`
	ZoomFactor         float64  `yaml:"zoom_factor"`
	EncodeTimeout      Duration `yaml:"encode_timeout"`
	WorkDir            string   `yaml:"work_dir"`
	OutputDir          string   `yaml:"output_dir"`
}

// SchedulerConfig holds settings for the pipeline job loop.
type SchedulerConfig struct {
	TickInterval Duration `yaml:"tick_interval"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(120 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(1 * time.Second),
				MaxDelay:  Duration(60 * time.Second),
			},
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "./data/postcard.db",
		},
		Tour: TourConfig{
			BaseURL:       "https://api.turai.example/v1",
			PollInterval:  Duration(8 * time.Second),
			MaxWait:       Duration(5 * time.Minute),
			MinNarrations: 0,
		},
		ImageGen: ImageGenConfig{
			Gemini: GeminiConfig{
				Model: "gemini-2.5-flash-image",
			},
			Pollinations: PollinationsConfig{
				Model: "flux",
			},
			Stock: StockConfig{
				BaseURL: "https://loremflickr.com",
			},
			MaxPerStop:    6,
			MinImageBytes: 10 * 1024,
		},
		TTS: TTSConfig{
			Engine: "elevenlabs",
			ElevenLabs: ElevenLabsConfig{
				VoiceID: "EXAVITQu4vr4xnSDxMaL",
				Model:   "eleven_multilingual_v2",
			},
			Pollinations: PollyVoiceConfig{
				Voice: "nova",
			},
		},
		Video: VideoConfig{
			Width:              1080,
			Height:             1920,
			FPS:                30,
			SecondsPerImage:    5,
			MaxDuration:        Duration(60 * time.Second),
			TransitionDuration: Duration(500 * time.Millisecond),
			ZoomFactor:         1.12,
			EncodeTimeout:      Duration(60 * time.Second),
			WorkDir:            "",
			OutputDir:          "./data/videos",
		},
		Scheduler: SchedulerConfig{
			TickInterval: Duration(5 * time.Second),
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT
// save back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	applyEnvFallbacks(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvFallbacks fills in API keys from the environment when the config
// file leaves them empty. Values are never written back to disk.
func applyEnvFallbacks(cfg *Config) {
	if cfg.ImageGen.Gemini.Key == "" {
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			cfg.ImageGen.Gemini.Key = key
		}
	}
	if cfg.TTS.ElevenLabs.Key == "" {
		if key := os.Getenv("ELEVENLABS_API_KEY"); key != "" {
			cfg.TTS.ElevenLabs.Key = key
		}
	}
	if cfg.Tour.Key == "" {
		if key := os.Getenv("TOUR_API_KEY"); key != "" {
			cfg.Tour.Key = key
		}
	}
}

func validate(cfg *Config) error {
	if cfg.Video.Width <= 0 || cfg.Video.Height <= 0 {
		return fmt.Errorf("invalid video dimensions %dx%d", cfg.Video.Width, cfg.Video.Height)
	}
	if cfg.Video.SecondsPerImage <= 0 {
		return fmt.Errorf("seconds_per_image must be positive, got %.2f", cfg.Video.SecondsPerImage)
	}
	if cfg.ImageGen.MaxPerStop < 1 {
		return fmt.Errorf("imagegen max_per_stop must be at least 1, got %d", cfg.ImageGen.MaxPerStop)
	}
	if td, md := time.Duration(cfg.Video.TransitionDuration), time.Duration(cfg.Video.MaxDuration); td >= md {
		return fmt.Errorf("transition_duration %s must be shorter than max_duration %s", td, md)
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# PostcardGo Configuration
# -----------------------
# Supported Duration units: ns, us, ms, s, m, h, d (day), w (week)

`)
	data = append(header, data...)

	// Inject comments for enum fields
	reEngine := regexp.MustCompile(`(?m)^(\s+)engine:`)
	data = reEngine.ReplaceAll(data, []byte("${1}# Options: elevenlabs, pollinations\n${1}engine:"))

	reMin := regexp.MustCompile(`(?m)^(\s+)min_narrations:`)
	data = reMin.ReplaceAll(data, []byte("${1}# 0 = wait for all expected narrations\n${1}min_narrations:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
