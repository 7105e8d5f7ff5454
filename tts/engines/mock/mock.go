// Package mock provides a synthesis engine for testing the lifecycle
// manager and generation pipeline without any external backend.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/voiceforge/voiceforge/tts"
)

// Engine implements tts.Engine for testing.
type Engine struct {
	mu sync.Mutex

	// Identity
	name string

	// Control for testing
	available     bool
	failLoad      error
	failGenerate  error
	delay         time.Duration // per generation step
	steps         int           // cancellation check points per generation
	cloning       bool
	emotion       bool
	builtinVoices []string

	// State
	loaded bool

	// Call counters
	loadCalls     int
	unloadCalls   int
	generateCalls int
}

// New creates an available mock engine named name.
func New(name string) *Engine {
	return &Engine{
		name:          name,
		available:     true,
		steps:         1,
		builtinVoices: []string{"mock-voice-1", "mock-voice-2"},
	}
}

// SetAvailable controls the availability probe result.
func (e *Engine) SetAvailable(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.available = v
}

// FailLoad makes the next Load calls fail with err.
func (e *Engine) FailLoad(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failLoad = err
}

// FailGenerate makes Generate calls fail with err.
func (e *Engine) FailGenerate(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failGenerate = err
}

// SetDelay sets the simulated work per generation step.
func (e *Engine) SetDelay(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delay = d
}

// SetSteps sets how many cancellation check points a generation has.
func (e *Engine) SetSteps(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n < 1 {
		n = 1
	}
	e.steps = n
}

// SetCapabilities overrides the cloning/emotion capability flags.
func (e *Engine) SetCapabilities(cloning, emotion bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cloning = cloning
	e.emotion = emotion
}

// LoadCalls returns how many times Load ran.
func (e *Engine) LoadCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadCalls
}

// UnloadCalls returns how many times Unload ran on a loaded engine.
func (e *Engine) UnloadCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unloadCalls
}

// GenerateCalls returns how many times Generate ran.
func (e *Engine) GenerateCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generateCalls
}

// Loaded reports whether the engine currently holds the resource.
func (e *Engine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

// Name implements tts.Engine.
func (e *Engine) Name() string { return e.name }

// Description implements tts.Engine.
func (e *Engine) Description() string { return "Mock engine for tests" }

// Available implements tts.Engine.
func (e *Engine) Available() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.available
}

// RequiredVRAMGB implements tts.Engine.
func (e *Engine) RequiredVRAMGB() float64 { return 0.1 }

// SupportsVoiceCloning implements tts.Engine.
func (e *Engine) SupportsVoiceCloning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cloning
}

// SupportsEmotionControl implements tts.Engine.
func (e *Engine) SupportsEmotionControl() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.emotion
}

// Voices implements tts.Engine.
func (e *Engine) Voices() []string {
	out := make([]string, len(e.builtinVoices))
	copy(out, e.builtinVoices)
	return out
}

// Load implements tts.Engine.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadCalls++
	if e.failLoad != nil {
		return e.failLoad
	}
	if !e.available {
		return tts.ErrEngineNotAvailable
	}
	e.loaded = true
	return nil
}

// Unload implements tts.Engine.
func (e *Engine) Unload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded {
		e.unloadCalls++
	}
	e.loaded = false
	return nil
}

// Generate implements tts.Engine. The simulated work is split into steps
// with a cancellation check between each, mirroring how real backends poll
// a stopping predicate between generation steps.
func (e *Engine) Generate(ctx context.Context, req tts.GenerationRequest, progress tts.ProgressFunc) (*tts.GenerationResult, error) {
	e.mu.Lock()
	e.generateCalls++
	loaded := e.loaded
	failErr := e.failGenerate
	delay := e.delay
	steps := e.steps
	e.mu.Unlock()

	if !loaded {
		return nil, tts.NewEngineError(e.name, "generate", tts.ErrModelNotLoaded)
	}
	if failErr != nil {
		return nil, tts.NewEngineError(e.name, "generate",
			fmt.Errorf("%w: %v", tts.ErrGenerationFailed, failErr))
	}

	if progress != nil {
		progress(0.1, "Starting generation...")
	}

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			// No partial artifact on cancellation.
			return nil, tts.NewEngineError(e.name, "generate", tts.ErrGenerationCancelled)
		default:
		}
		if delay > 0 {
			time.Sleep(delay)
		}
		if progress != nil {
			frac := 0.1 + 0.9*float64(i+1)/float64(steps)
			progress(frac, fmt.Sprintf("step %d/%d", i+1, steps))
		}
	}

	return &tts.GenerationResult{
		AudioPath:       "mock://" + e.name + "/output.wav",
		SampleRate:      22050,
		DurationSeconds: float64(len(req.Text)) / 20.0,
		EngineUsed:      e.name,
	}, nil
}

// CloneVoice implements tts.Engine.
func (e *Engine) CloneVoice(ctx context.Context, audioPath, displayName, referenceText string) (*tts.VoiceProfile, error) {
	if !e.SupportsVoiceCloning() {
		return nil, tts.NewEngineError(e.name, "clone", tts.ErrUnsupportedOperation)
	}
	return &tts.VoiceProfile{
		ID:                 "mock-clone",
		Name:               displayName,
		Engine:             e.name,
		ReferenceAudioPath: audioPath,
		ReferenceText:      referenceText,
		CreatedAt:          time.Now(),
		Source:             "audio",
	}, nil
}
