package tts

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
)

// Config contains all synthesis core configuration options.
type Config struct {
	// Global settings
	Engine string `yaml:"engine" env:"VOICEFORGE_ENGINE"`
	Device string `yaml:"device" env:"VOICEFORGE_DEVICE"`
	Debug  bool   `yaml:"debug" env:"VOICEFORGE_DEBUG"`

	// Directories
	DataDir     string `yaml:"data_dir" env:"VOICEFORGE_DATA_DIR"`
	ModelsDir   string `yaml:"models_dir" env:"VOICEFORGE_MODELS_DIR"`
	VoicesDir   string `yaml:"voices_dir" env:"VOICEFORGE_VOICES_DIR"`
	OutputsDir  string `yaml:"outputs_dir" env:"VOICEFORGE_OUTPUTS_DIR"`
	PreviewsDir string `yaml:"previews_dir" env:"VOICEFORGE_PREVIEWS_DIR"`

	// Orchestration settings
	PollInterval time.Duration `yaml:"poll_interval" env:"VOICEFORGE_POLL_INTERVAL"`

	// Engine-specific configurations
	Kokoro     KokoroConfig     `yaml:"kokoro"`
	F5         F5Config         `yaml:"f5"`
	FishSpeech FishSpeechConfig `yaml:"fish_speech"`

	// Prompt-voice generation settings
	PromptVoice PromptVoiceConfig `yaml:"prompt_voice"`
}

// KokoroConfig contains Kokoro engine specific settings.
type KokoroConfig struct {
	Binary  string        `yaml:"binary" env:"VOICEFORGE_KOKORO_BINARY"`
	Timeout time.Duration `yaml:"timeout" env:"VOICEFORGE_KOKORO_TIMEOUT"`
}

// F5Config contains F5-TTS engine specific settings.
type F5Config struct {
	Binary  string        `yaml:"binary" env:"VOICEFORGE_F5_BINARY"`
	Timeout time.Duration `yaml:"timeout" env:"VOICEFORGE_F5_TIMEOUT"`
}

// FishSpeechConfig contains Fish Speech engine specific settings.
type FishSpeechConfig struct {
	Binary  string        `yaml:"binary" env:"VOICEFORGE_FISH_BINARY"`
	Timeout time.Duration `yaml:"timeout" env:"VOICEFORGE_FISH_TIMEOUT"`
}

// PromptVoiceConfig contains prompt-voice preview generation settings.
type PromptVoiceConfig struct {
	Binary     string `yaml:"binary" env:"VOICEFORGE_PROMPT_BINARY"`
	Model      string `yaml:"model" env:"VOICEFORGE_PROMPT_MODEL"`
	SampleText string `yaml:"sample_text" env:"VOICEFORGE_PROMPT_SAMPLE_TEXT"`
}

// DefaultConfig returns a Config with sensible defaults. The data directory
// resolves to the user's platform data dir unless overridden.
func DefaultConfig() Config {
	cfg := Config{
		Engine:       "kokoro",
		Device:       "cuda",
		PollInterval: 5 * time.Second,
		Kokoro:       KokoroConfig{Binary: "kokoro-tts", Timeout: 120 * time.Second},
		F5:           F5Config{Binary: "f5-tts_infer-cli", Timeout: 600 * time.Second},
		FishSpeech:   FishSpeechConfig{Binary: "fish-speech", Timeout: 600 * time.Second},
		PromptVoice: PromptVoiceConfig{
			Binary:     "parler-tts",
			Model:      "parler-mini-v1.1",
			SampleText: "Hello, this is a preview of my custom voice. I hope you like how it sounds.",
		},
	}
	cfg.DataDir = defaultDataDir()
	cfg.applyDirDefaults()
	return cfg
}

func defaultDataDir() string {
	scope := gap.NewScope(gap.User, "voiceforge")
	dirs, err := scope.DataDirs()
	if err != nil || len(dirs) == 0 {
		home, herr := homedir.Dir()
		if herr != nil {
			return "data"
		}
		return filepath.Join(home, ".voiceforge")
	}
	return dirs[0]
}

// applyDirDefaults fills unset subdirectories relative to DataDir.
func (c *Config) applyDirDefaults() {
	if c.ModelsDir == "" {
		c.ModelsDir = filepath.Join(c.DataDir, "models")
	}
	if c.VoicesDir == "" {
		c.VoicesDir = filepath.Join(c.DataDir, "voices")
	}
	if c.OutputsDir == "" {
		c.OutputsDir = filepath.Join(c.DataDir, "outputs")
	}
	if c.PreviewsDir == "" {
		c.PreviewsDir = filepath.Join(c.DataDir, "previews")
	}
}

// ExpandPaths resolves ~ in all configured directories.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{&c.DataDir, &c.ModelsDir, &c.VoicesDir, &c.OutputsDir, &c.PreviewsDir} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expanding %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// EnsureDirectories creates every configured directory.
func (c *Config) EnsureDirectories() error {
	for _, d := range []string{c.DataDir, c.ModelsDir, c.VoicesDir, c.OutputsDir, c.PreviewsDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", d, err)
		}
	}
	return nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.PollInterval < time.Second {
		return fmt.Errorf("poll_interval must be at least 1s, got %s", c.PollInterval)
	}
	if c.Device != "cuda" && c.Device != "cpu" && c.Device != "mps" {
		return fmt.Errorf("device must be cuda, cpu, or mps, got %q", c.Device)
	}
	return nil
}
