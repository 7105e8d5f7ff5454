package tts

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// LoadConfigFromViper loads core configuration from Viper, falling back to
// defaults for anything unset, then applies environment overrides.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("engine") {
		cfg.Engine = viper.GetString("engine")
	}
	if viper.IsSet("device") {
		cfg.Device = viper.GetString("device")
	}
	if viper.IsSet("debug") {
		cfg.Debug = viper.GetBool("debug")
	}

	if viper.IsSet("data_dir") {
		cfg.DataDir = viper.GetString("data_dir")
		// Subdirectories follow the data dir unless set explicitly.
		cfg.ModelsDir = ""
		cfg.VoicesDir = ""
		cfg.OutputsDir = ""
		cfg.PreviewsDir = ""
	}
	if viper.IsSet("models_dir") {
		cfg.ModelsDir = viper.GetString("models_dir")
	}
	if viper.IsSet("voices_dir") {
		cfg.VoicesDir = viper.GetString("voices_dir")
	}
	if viper.IsSet("outputs_dir") {
		cfg.OutputsDir = viper.GetString("outputs_dir")
	}
	if viper.IsSet("previews_dir") {
		cfg.PreviewsDir = viper.GetString("previews_dir")
	}
	cfg.applyDirDefaults()

	if viper.IsSet("poll_interval") {
		cfg.PollInterval = viper.GetDuration("poll_interval")
	}

	cfg.Kokoro = loadKokoroConfig(cfg.Kokoro)
	cfg.F5 = loadF5Config(cfg.F5)
	cfg.FishSpeech = loadFishSpeechConfig(cfg.FishSpeech)
	cfg.PromptVoice = loadPromptVoiceConfig(cfg.PromptVoice)

	// Environment variables win over file values.
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.ExpandPaths(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadKokoroConfig(cfg KokoroConfig) KokoroConfig {
	if viper.IsSet("kokoro.binary") {
		cfg.Binary = viper.GetString("kokoro.binary")
	}
	if viper.IsSet("kokoro.timeout") {
		cfg.Timeout = getDuration("kokoro.timeout", cfg.Timeout)
	}
	return cfg
}

func loadF5Config(cfg F5Config) F5Config {
	if viper.IsSet("f5.binary") {
		cfg.Binary = viper.GetString("f5.binary")
	}
	if viper.IsSet("f5.timeout") {
		cfg.Timeout = getDuration("f5.timeout", cfg.Timeout)
	}
	return cfg
}

func loadFishSpeechConfig(cfg FishSpeechConfig) FishSpeechConfig {
	if viper.IsSet("fish_speech.binary") {
		cfg.Binary = viper.GetString("fish_speech.binary")
	}
	if viper.IsSet("fish_speech.timeout") {
		cfg.Timeout = getDuration("fish_speech.timeout", cfg.Timeout)
	}
	return cfg
}

func loadPromptVoiceConfig(cfg PromptVoiceConfig) PromptVoiceConfig {
	if viper.IsSet("prompt_voice.binary") {
		cfg.Binary = viper.GetString("prompt_voice.binary")
	}
	if viper.IsSet("prompt_voice.model") {
		cfg.Model = viper.GetString("prompt_voice.model")
	}
	if viper.IsSet("prompt_voice.sample_text") {
		cfg.SampleText = viper.GetString("prompt_voice.sample_text")
	}
	return cfg
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return fallback
}
