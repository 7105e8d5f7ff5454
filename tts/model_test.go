package tts

import (
	"errors"
	"strings"
	"testing"
)

func TestNewGenerationRequestDefaults(t *testing.T) {
	req := NewGenerationRequest("hello")
	if req.Speed != 1.0 {
		t.Errorf("Expected default speed 1.0, got %f", req.Speed)
	}
	if req.Temperature != 0.7 {
		t.Errorf("Expected default temperature 0.7, got %f", req.Temperature)
	}
	if req.Format != "wav" {
		t.Errorf("Expected default format wav, got %q", req.Format)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GenerationRequest)
		wantErr error
	}{
		{"valid", func(*GenerationRequest) {}, nil},
		{"empty text", func(r *GenerationRequest) { r.Text = "" }, ErrEmptyText},
		{"whitespace only", func(r *GenerationRequest) { r.Text = "   \n\t " }, ErrEmptyText},
		{"too long", func(r *GenerationRequest) { r.Text = strings.Repeat("a", MaxTextLength+1) }, ErrTextTooLong},
		{"speed too low", func(r *GenerationRequest) { r.Speed = 0.1 }, ErrInvalidSpeed},
		{"speed too high", func(r *GenerationRequest) { r.Speed = 4.5 }, ErrInvalidSpeed},
		{"speed at bounds", func(r *GenerationRequest) { r.Speed = MinSpeed }, nil},
		{"temperature negative", func(r *GenerationRequest) { r.Temperature = -0.1 }, ErrInvalidTemp},
		{"temperature too high", func(r *GenerationRequest) { r.Temperature = 2.5 }, ErrInvalidTemp},
		{"bad format", func(r *GenerationRequest) { r.Format = "aiff" }, ErrInvalidFormat},
		{"mp3 format", func(r *GenerationRequest) { r.Format = "mp3" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewGenerationRequest("hello world")
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateNormalizesText(t *testing.T) {
	// "e" followed by a combining acute accent should compose to "é".
	req := NewGenerationRequest("  café  ")
	if err := req.Validate(); err != nil {
		t.Fatalf("Expected valid request, got %v", err)
	}
	if req.Text != "café" {
		t.Errorf("Expected NFC-composed text, got %q", req.Text)
	}
}

func TestVoiceProfileSetting(t *testing.T) {
	var nilProfile *VoiceProfile
	if got := nilProfile.Setting("kokoro_voice"); got != "" {
		t.Errorf("Expected empty setting on nil profile, got %q", got)
	}

	p := &VoiceProfile{Settings: map[string]string{"kokoro_voice": "af_heart"}}
	if got := p.Setting("kokoro_voice"); got != "af_heart" {
		t.Errorf("Expected af_heart, got %q", got)
	}
	if got := p.Setting("missing"); got != "" {
		t.Errorf("Expected empty for missing key, got %q", got)
	}
}
