package tts

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Request bounds, matching the public API contract.
const (
	MaxTextLength  = 100000
	MinSpeed       = 0.25
	MaxSpeed       = 4.0
	MinTemperature = 0.0
	MaxTemperature = 2.0
)

// OutputFormats lists the audio containers a request may ask for.
var OutputFormats = []string{"wav", "mp3", "flac", "ogg"}

// EngineDescriptor is an immutable identity and capability snapshot for a
// registered engine, produced by Describe.
type EngineDescriptor struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Available       bool     `json:"available"`
	SupportsCloning bool     `json:"supports_cloning"`
	SupportsEmotion bool     `json:"supports_emotion"`
	RequiredVRAMGB  float64  `json:"required_vram_gb"`
	BuiltinVoices   []string `json:"builtin_voices"`
	Loaded          bool     `json:"loaded"`
}

// VoiceProfile is a named, engine-agnostic reference for synthesis. Profiles
// live in durable storage outside this core; the core reads them through the
// cloning operation or accepts one as generation input.
type VoiceProfile struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Engine             string            `json:"engine"`
	ReferenceAudioPath string            `json:"reference_audio_path,omitempty"`
	ReferenceText      string            `json:"reference_text,omitempty"`
	Description        string            `json:"description,omitempty"`
	Settings           map[string]string `json:"settings,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	Source             string            `json:"source"` // "audio" | "prompt"
}

// Setting returns a named engine-specific knob, or "" when unset.
func (p *VoiceProfile) Setting(key string) string {
	if p == nil || p.Settings == nil {
		return ""
	}
	return p.Settings[key]
}

// GenerationRequest carries one synthesis call. Construct per call and treat
// as immutable once validated.
type GenerationRequest struct {
	Text        string
	Voice       *VoiceProfile
	Emotion     string
	Speed       float64
	Temperature float64
	Seed        *int64
	Format      string
}

// NewGenerationRequest returns a request with default knob values.
func NewGenerationRequest(text string) GenerationRequest {
	return GenerationRequest{
		Text:        text,
		Speed:       1.0,
		Temperature: 0.7,
		Format:      "wav",
	}
}

// Validate normalizes the request text and checks every bound. It must pass
// before any engine is touched.
func (r *GenerationRequest) Validate() error {
	r.Text = strings.TrimSpace(norm.NFC.String(r.Text))
	if r.Text == "" {
		return ErrEmptyText
	}
	if len(r.Text) > MaxTextLength {
		return ErrTextTooLong
	}
	if r.Speed < MinSpeed || r.Speed > MaxSpeed {
		return ErrInvalidSpeed
	}
	if r.Temperature < MinTemperature || r.Temperature > MaxTemperature {
		return ErrInvalidTemp
	}
	valid := false
	for _, f := range OutputFormats {
		if r.Format == f {
			valid = true
			break
		}
	}
	if !valid {
		return ErrInvalidFormat
	}
	return nil
}

// GenerationResult describes a produced audio artifact. Ownership of the
// file passes to the caller; the core does not manage its lifetime.
type GenerationResult struct {
	AudioPath       string  `json:"audio_path"`
	SampleRate      int     `json:"sample_rate"`
	DurationSeconds float64 `json:"duration_seconds"`
	EngineUsed      string  `json:"engine_used"`
}
