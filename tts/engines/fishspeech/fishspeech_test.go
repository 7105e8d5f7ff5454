package fishspeech

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voiceforge/voiceforge/tts"
	"github.com/voiceforge/voiceforge/tts/voices"
)

func testEngine(t *testing.T, binary string) *Engine {
	t.Helper()
	lib := voices.NewDirLibrary(t.TempDir())
	return New(tts.FishSpeechConfig{Binary: binary, Timeout: 10 * time.Second}, lib, t.TempDir(), t.TempDir())
}

func TestEngineMetadata(t *testing.T) {
	e := testEngine(t, "fish-speech")
	if e.Name() != "fish-speech" {
		t.Errorf("Expected fish-speech, got %s", e.Name())
	}
	if !e.SupportsVoiceCloning() || !e.SupportsEmotionControl() {
		t.Error("Expected cloning and emotion support")
	}
	if e.RequiredVRAMGB() != 4.0 {
		t.Errorf("Expected 4.0 GB, got %f", e.RequiredVRAMGB())
	}
}

func TestEmotionPresets(t *testing.T) {
	// Friendly names map to the model's inline markers.
	cases := map[string]string{
		"happy":   "(happy)",
		"calm":    "(relaxed)",
		"whisper": "(whispering)",
		"urgent":  "(in a hurry tone)",
		"tender":  "(soft tone)",
	}
	for emotion, want := range cases {
		if got := EmotionPresets[emotion]; got != want {
			t.Errorf("Expected %s -> %q, got %q", emotion, want, got)
		}
	}
	if len(EmotionPresets) != 18 {
		t.Errorf("Expected 18 presets, got %d", len(EmotionPresets))
	}
}

func TestGenerateRequiresLoad(t *testing.T) {
	e := testEngine(t, "true")
	_, err := e.Generate(context.Background(), tts.NewGenerationRequest("hi"), nil)
	if !errors.Is(err, tts.ErrModelNotLoaded) {
		t.Fatalf("Expected ErrModelNotLoaded, got %v", err)
	}
}

func TestGenerateWithEmotion(t *testing.T) {
	e := testEngine(t, "true")
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("Expected load to succeed, got %v", err)
	}

	req := tts.NewGenerationRequest("hello")
	req.Emotion = "whisper"
	result, err := e.Generate(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Expected generation to succeed, got %v", err)
	}
	if result.SampleRate != 44100 {
		t.Errorf("Expected fallback sample rate 44100, got %d", result.SampleRate)
	}
}

func TestVoicesIncludeClonedProfiles(t *testing.T) {
	lib := voices.NewDirLibrary(t.TempDir())
	e := New(tts.FishSpeechConfig{Binary: "true", Timeout: time.Second}, lib, t.TempDir(), t.TempDir())

	if err := lib.Save(tts.VoiceProfile{ID: "v1", Name: "Alice", Engine: "fish-speech"}); err != nil {
		t.Fatal(err)
	}

	found := false
	for _, v := range e.Voices() {
		if v == "Alice" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected cloned voice in listing, got %v", e.Voices())
	}
}

func TestCloneVoice(t *testing.T) {
	e := testEngine(t, "true")

	// Missing reference audio fails cleanly.
	if _, err := e.CloneVoice(context.Background(), "/nonexistent.wav", "Alice", ""); err == nil {
		t.Error("Expected clone with missing audio to fail")
	}
}
