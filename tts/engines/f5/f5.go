// Package f5 integrates the F5-TTS synthesis backend.
package f5

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/voiceforge/voiceforge/tts"
	"github.com/voiceforge/voiceforge/tts/engines"
	"github.com/voiceforge/voiceforge/tts/voices"
)

const (
	name       = "f5-tts"
	sampleRate = 24000
)

// Engine wraps the F5-TTS inference CLI. Zero-shot voice cloning from a
// short reference clip; no emotion control.
type Engine struct {
	cfg        tts.F5Config
	library    voices.Library
	modelsDir  string
	outputsDir string

	mu     sync.Mutex
	loaded bool
}

// New creates an F5-TTS engine. Cloned voices are read from and saved to
// the given library; model weights live under modelsDir.
func New(cfg tts.F5Config, library voices.Library, modelsDir, outputsDir string) *Engine {
	return &Engine{cfg: cfg, library: library, modelsDir: modelsDir, outputsDir: outputsDir}
}

// Name implements tts.Engine.
func (e *Engine) Name() string { return name }

// Description implements tts.Engine.
func (e *Engine) Description() string {
	return "F5-TTS: Excellent zero-shot voice cloning with multilingual support."
}

// Available implements tts.Engine.
func (e *Engine) Available() bool {
	return engines.BinaryInstalled(e.cfg.Binary)
}

// RequiredVRAMGB implements tts.Engine.
func (e *Engine) RequiredVRAMGB() float64 { return 12.0 }

// SupportsVoiceCloning implements tts.Engine.
func (e *Engine) SupportsVoiceCloning() bool { return true }

// SupportsEmotionControl implements tts.Engine.
func (e *Engine) SupportsEmotionControl() bool { return false }

// Voices returns the cloned voices tagged for this engine. F5 ships no
// built-in voices.
func (e *Engine) Voices() []string {
	var out []string
	for _, p := range e.library.ProfilesFor(name) {
		out = append(out, p.Name)
	}
	return out
}

// Load implements tts.Engine.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded {
		return nil
	}
	if !e.Available() {
		return tts.NewEngineError(name, "load", tts.ErrEngineNotAvailable)
	}

	// A downloaded weights archive is unpacked on first load.
	weightsDir := filepath.Join(e.modelsDir, name)
	if !engines.WeightsPresent(weightsDir) {
		archive := weightsDir + ".tar.gz"
		if _, err := os.Stat(archive); err == nil {
			if err := engines.ExtractModelArchive(archive, weightsDir); err != nil {
				return tts.NewEngineError(name, "load", err)
			}
		}
	}

	log.Info("Loading F5-TTS model")
	start := time.Now()
	cmd := exec.CommandContext(ctx, e.cfg.Binary, "--warmup")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return tts.NewEngineError(name, "load",
			fmt.Errorf("warmup failed: %v: %s", err, strings.TrimSpace(stderr.String())))
	}
	e.loaded = true
	log.Info("F5-TTS model loaded", "took", time.Since(start).Round(100*time.Millisecond))
	return nil
}

// Unload implements tts.Engine.
func (e *Engine) Unload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return nil
	}
	e.loaded = false
	log.Info("F5-TTS model unloaded")
	return nil
}

// Generate implements tts.Engine.
func (e *Engine) Generate(ctx context.Context, req tts.GenerationRequest, progress tts.ProgressFunc) (*tts.GenerationResult, error) {
	e.mu.Lock()
	loaded := e.loaded
	e.mu.Unlock()
	if !loaded {
		return nil, tts.NewEngineError(name, "generate", tts.ErrModelNotLoaded)
	}

	log.Info("Generating", "engine", name, "text_len", len(req.Text))
	start := time.Now()

	if progress != nil {
		progress(0.1, "Preparing reference audio...")
	}

	outPath, err := engines.OutputPath(e.outputsDir, req.Format)
	if err != nil {
		return nil, tts.NewEngineError(name, "generate", err)
	}

	args := []string{
		"--gen_text", req.Text,
		"--output", outPath,
	}
	if req.Voice != nil && req.Voice.ReferenceAudioPath != "" {
		args = append(args, "--ref_audio", req.Voice.ReferenceAudioPath)
		if req.Voice.ReferenceText != "" {
			args = append(args, "--ref_text", req.Voice.ReferenceText)
		}
	}
	if req.Seed != nil {
		args = append(args, "--seed", fmt.Sprintf("%d", *req.Seed))
	}

	if progress != nil {
		progress(0.3, "Generating speech...")
	}

	tctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	cmd := exec.CommandContext(tctx, e.cfg.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(outPath)
		if ctx.Err() != nil {
			return nil, tts.NewEngineError(name, "generate", tts.ErrGenerationCancelled)
		}
		return nil, tts.NewEngineError(name, "generate",
			fmt.Errorf("%w: %v: %s", tts.ErrGenerationFailed, err, strings.TrimSpace(stderr.String())))
	}
	if ctx.Err() != nil {
		_ = os.Remove(outPath)
		return nil, tts.NewEngineError(name, "generate", tts.ErrGenerationCancelled)
	}

	info, err := engines.ReadWAVInfo(outPath)
	if err != nil {
		info.SampleRate = sampleRate
	}

	if progress != nil {
		progress(1.0, "Complete")
	}
	log.Info("Generated audio", "engine", name,
		"duration", fmt.Sprintf("%.1fs", info.DurationSeconds),
		"took", time.Since(start).Round(100*time.Millisecond))

	return &tts.GenerationResult{
		AudioPath:       outPath,
		SampleRate:      info.SampleRate,
		DurationSeconds: info.DurationSeconds,
		EngineUsed:      name,
	}, nil
}

// CloneVoice copies the reference clip into the voice library and persists
// a profile tagged for this engine.
func (e *Engine) CloneVoice(ctx context.Context, audioPath, displayName, referenceText string) (*tts.VoiceProfile, error) {
	profile, err := voices.CloneFromAudio(e.library, name, audioPath, displayName, referenceText)
	if err != nil {
		return nil, tts.NewEngineError(name, "clone", err)
	}
	return profile, nil
}
