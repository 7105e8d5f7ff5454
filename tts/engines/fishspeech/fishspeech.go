// Package fishspeech integrates the Fish Speech S1 synthesis backend.
package fishspeech

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/voiceforge/voiceforge/tts"
	"github.com/voiceforge/voiceforge/tts/engines"
	"github.com/voiceforge/voiceforge/tts/voices"
)

const (
	name       = "fish-speech"
	sampleRate = 44100
)

// EmotionPresets maps friendly emotion names to the inline markers the
// model understands. Unknown emotions pass through as "(<emotion>)".
var EmotionPresets = map[string]string{
	"happy":     "(happy)",
	"sad":       "(sad)",
	"angry":     "(angry)",
	"excited":   "(excited)",
	"calm":      "(relaxed)",
	"whisper":   "(whispering)",
	"shout":     "(shouting)",
	"nervous":   "(nervous)",
	"confident": "(confident)",
	"sarcastic": "(sarcastic)",
	"tender":    "(soft tone)",
	"urgent":    "(in a hurry tone)",
	"laughing":  "(laughing)",
	"crying":    "(crying loudly)",
	"fearful":   "(scared)",
	"disgusted": "(disgusted)",
	"surprised": "(surprised)",
	"amused":    "(amused)",
}

// Engine wraps the fish-speech inference CLI. Highest quality, with voice
// cloning and emotion markers.
type Engine struct {
	cfg        tts.FishSpeechConfig
	library    voices.Library
	modelsDir  string
	outputsDir string

	mu     sync.Mutex
	loaded bool
}

// New creates a Fish Speech engine. Model weights live under modelsDir.
func New(cfg tts.FishSpeechConfig, library voices.Library, modelsDir, outputsDir string) *Engine {
	return &Engine{cfg: cfg, library: library, modelsDir: modelsDir, outputsDir: outputsDir}
}

// Name implements tts.Engine.
func (e *Engine) Name() string { return name }

// Description implements tts.Engine.
func (e *Engine) Description() string {
	return "Fish Speech S1: Highest quality with voice cloning and 50+ emotion controls."
}

// Available implements tts.Engine.
func (e *Engine) Available() bool {
	return engines.BinaryInstalled(e.cfg.Binary)
}

// RequiredVRAMGB implements tts.Engine.
func (e *Engine) RequiredVRAMGB() float64 { return 4.0 }

// SupportsVoiceCloning implements tts.Engine.
func (e *Engine) SupportsVoiceCloning() bool { return true }

// SupportsEmotionControl implements tts.Engine.
func (e *Engine) SupportsEmotionControl() bool { return true }

// Voices returns the cloned voices tagged for this engine.
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

	log.Info("Loading Fish Speech model")
	start := time.Now()
	cmd := exec.CommandContext(ctx, e.cfg.Binary, "--warmup")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return tts.NewEngineError(name, "load",
			fmt.Errorf("warmup failed: %v: %s", err, strings.TrimSpace(stderr.String())))
	}
	e.loaded = true
	log.Info("Fish Speech model loaded", "took", time.Since(start).Round(100*time.Millisecond))
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
	log.Info("Fish Speech model unloaded")
	return nil
}

// Generate implements tts.Engine. Emotion tags are injected as inline
// markers ahead of the text.
func (e *Engine) Generate(ctx context.Context, req tts.GenerationRequest, progress tts.ProgressFunc) (*tts.GenerationResult, error) {
	e.mu.Lock()
	loaded := e.loaded
	e.mu.Unlock()
	if !loaded {
		return nil, tts.NewEngineError(name, "generate", tts.ErrModelNotLoaded)
	}

	if progress != nil {
		progress(0.1, "Preparing text...")
	}

	text := req.Text
	if req.Emotion != "" {
		marker, ok := EmotionPresets[req.Emotion]
		if !ok {
			marker = "(" + req.Emotion + ")"
		}
		text = marker + text
		log.Debug("Injected emotion marker", "marker", marker)
	}

	log.Info("Generating", "engine", name, "text_len", len(text), "temp", req.Temperature)
	start := time.Now()

	if progress != nil {
		progress(0.3, "Generating speech...")
	}

	outPath, err := engines.OutputPath(e.outputsDir, req.Format)
	if err != nil {
		return nil, tts.NewEngineError(name, "generate", err)
	}

	args := []string{
		"--text", text,
		"--output", outPath,
		"--temperature", strconv.FormatFloat(req.Temperature, 'f', 2, 64),
	}
	if req.Voice != nil && req.Voice.ReferenceAudioPath != "" {
		args = append(args, "--reference-audio", req.Voice.ReferenceAudioPath)
		if req.Voice.ReferenceText != "" {
			args = append(args, "--reference-text", req.Voice.ReferenceText)
		}
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

// CloneVoice implements tts.Engine.
func (e *Engine) CloneVoice(ctx context.Context, audioPath, displayName, referenceText string) (*tts.VoiceProfile, error) {
	profile, err := voices.CloneFromAudio(e.library, name, audioPath, displayName, referenceText)
	if err != nil {
		return nil, tts.NewEngineError(name, "clone", err)
	}
	return profile, nil
}
