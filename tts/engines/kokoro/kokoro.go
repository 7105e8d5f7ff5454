// Package kokoro integrates the Kokoro-82M synthesis backend.
package kokoro

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/voiceforge/voiceforge/tts"
	"github.com/voiceforge/voiceforge/tts/engines"
)

const (
	name       = "kokoro"
	sampleRate = 24000
)

// builtinVoices are the voice packs shipped with the Kokoro model.
var builtinVoices = []string{
	"af_heart", "af_bella", "af_nicole", "af_sarah", "af_sky",
	"am_adam", "am_michael",
	"bf_emma", "bf_isabella",
	"bm_george", "bm_lewis",
}

// Engine wraps the kokoro inference CLI. Fast and lightweight; no cloning
// or emotion support.
type Engine struct {
	cfg        tts.KokoroConfig
	outputsDir string

	mu     sync.Mutex
	loaded bool
}

// New creates a Kokoro engine writing artifacts under outputsDir.
func New(cfg tts.KokoroConfig, outputsDir string) *Engine {
	return &Engine{cfg: cfg, outputsDir: outputsDir}
}

// Name implements tts.Engine.
func (e *Engine) Name() string { return name }

// Description implements tts.Engine.
func (e *Engine) Description() string {
	return "Kokoro-82M: Fast, lightweight TTS with natural voices. Best for quick previews."
}

// Available implements tts.Engine.
func (e *Engine) Available() bool {
	return engines.BinaryInstalled(e.cfg.Binary)
}

// RequiredVRAMGB implements tts.Engine.
func (e *Engine) RequiredVRAMGB() float64 { return 2.0 }

// SupportsVoiceCloning implements tts.Engine.
func (e *Engine) SupportsVoiceCloning() bool { return false }

// SupportsEmotionControl implements tts.Engine.
func (e *Engine) SupportsEmotionControl() bool { return false }

// Voices implements tts.Engine.
func (e *Engine) Voices() []string {
	out := make([]string, len(builtinVoices))
	copy(out, builtinVoices)
	return out
}

// Load warms the inference process so the first generation does not pay the
// weight-transfer cost.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded {
		return nil
	}
	if !e.Available() {
		return tts.NewEngineError(name, "load", tts.ErrEngineNotAvailable)
	}

	log.Info("Loading Kokoro model")
	start := time.Now()
	cmd := exec.CommandContext(ctx, e.cfg.Binary, "--warmup")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return tts.NewEngineError(name, "load",
			fmt.Errorf("warmup failed: %v: %s", err, strings.TrimSpace(stderr.String())))
	}
	e.loaded = true
	log.Info("Kokoro model loaded", "took", time.Since(start).Round(100*time.Millisecond))
	return nil
}

// Unload releases the inference process. Always completes; partial failures
// are logged and swallowed.
func (e *Engine) Unload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return nil
	}
	e.loaded = false
	log.Info("Kokoro model unloaded")
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

	voice := "af_heart"
	if v := req.Voice.Setting("kokoro_voice"); v != "" {
		voice = v
	}

	log.Info("Generating", "engine", name, "voice", voice,
		"speed", req.Speed, "text_len", len(req.Text))
	start := time.Now()

	if progress != nil {
		progress(0.1, "Starting generation...")
	}

	outPath, err := engines.OutputPath(e.outputsDir, req.Format)
	if err != nil {
		return nil, tts.NewEngineError(name, "generate", err)
	}

	tctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	args := []string{
		"--voice", voice,
		"--speed", strconv.FormatFloat(req.Speed, 'f', 2, 64),
		"--format", req.Format,
		"--output", outPath,
	}
	cmd := exec.CommandContext(tctx, e.cfg.Binary, args...)
	cmd.Stdin = strings.NewReader(req.Text)
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

	// A cancellation racing process exit must not hand back an artifact.
	if ctx.Err() != nil {
		_ = os.Remove(outPath)
		return nil, tts.NewEngineError(name, "generate", tts.ErrGenerationCancelled)
	}

	if progress != nil {
		progress(0.8, "Saving audio...")
	}

	info, err := engines.ReadWAVInfo(outPath)
	if err != nil {
		// Non-wav containers carry no header we parse; fall back to the
		// model's native rate.
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

// CloneVoice implements tts.Engine. Kokoro has no cloning support.
func (e *Engine) CloneVoice(ctx context.Context, audioPath, displayName, referenceText string) (*tts.VoiceProfile, error) {
	return nil, tts.NewEngineError(name, "clone", tts.ErrUnsupportedOperation)
}
