package promptvoice

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/voiceforge/voiceforge/tts"
)

func TestParlerGeneratorAvailable(t *testing.T) {
	if NewParlerGenerator(tts.PromptVoiceConfig{Binary: "parler-no-such-binary"}).Available() {
		t.Error("Expected missing binary to report unavailable")
	}
	if !NewParlerGenerator(tts.PromptVoiceConfig{Binary: "true"}).Available() {
		t.Error("Expected present binary to report available")
	}
}

func TestParlerGeneratorRunsProcess(t *testing.T) {
	// "true" stands in for the inference process.
	g := NewParlerGenerator(tts.PromptVoiceConfig{Binary: "true", SampleText: "Hello."})

	model, _ := ModelByID(DefaultModelID)
	if err := g.Load(context.Background(), model, "cpu"); err != nil {
		t.Fatalf("Expected load to succeed, got %v", err)
	}

	req := PreviewRequest{
		Description: "a calm voice",
		Text:        "Hello.",
		MaxTokens:   516,
		OutputPath:  filepath.Join(t.TempDir(), "preview.wav"),
	}
	if err := g.Generate(context.Background(), req); err != nil {
		t.Fatalf("Expected generation to succeed, got %v", err)
	}
	if err := g.Unload(context.Background()); err != nil {
		t.Errorf("Expected unload to be a no-op, got %v", err)
	}
}

func TestParlerGeneratorProcessFailure(t *testing.T) {
	g := NewParlerGenerator(tts.PromptVoiceConfig{Binary: "false"})

	req := PreviewRequest{
		Description: "a calm voice",
		Text:        "Hello.",
		MaxTokens:   516,
		OutputPath:  filepath.Join(t.TempDir(), "preview.wav"),
	}
	err := g.Generate(context.Background(), req)
	if !errors.Is(err, tts.ErrGenerationFailed) {
		t.Fatalf("Expected ErrGenerationFailed, got %v", err)
	}
}

func TestParlerGeneratorLoadFailure(t *testing.T) {
	g := NewParlerGenerator(tts.PromptVoiceConfig{Binary: "false"})
	model, _ := ModelByID(DefaultModelID)
	if err := g.Load(context.Background(), model, "cpu"); err == nil {
		t.Error("Expected load via failing process to error")
	}
}
