// Package tts provides the engine lifecycle manager and generation
// orchestration layer for the voiceforge synthesis core.
package tts

import "context"

// ProgressFunc receives generation progress. Fraction is monotonically
// non-decreasing in [0.0, 1.0]; stage is a short human-readable label.
type ProgressFunc func(fraction float64, stage string)

// Engine defines the capability contract every synthesis backend implements.
//
// Engines are heavyweight: while loaded they hold an exclusive share of
// device memory. Load and Unload are only ever driven by the Manager, which
// guarantees at most one engine is resident at a time.
type Engine interface {
	// Name returns the stable unique key for this engine. It must never
	// change after registration.
	Name() string

	// Description returns a short human-readable description.
	Description() string

	// Available probes whether the backend's runtime dependency is
	// installed. It is side-effect free and must not panic; probe
	// failures report false.
	Available() bool

	// RequiredVRAMGB returns the approximate device memory the loaded
	// model occupies.
	RequiredVRAMGB() float64

	// SupportsVoiceCloning reports whether CloneVoice is implemented.
	SupportsVoiceCloning() bool

	// SupportsEmotionControl reports whether emotion tags are honored.
	SupportsEmotionControl() bool

	// Voices returns built-in voice identifiers plus any cloned voices
	// discovered for this engine. Order is discovery order and not
	// guaranteed stable across calls.
	Voices() []string

	// Load brings the model into device memory. It may block on disk or
	// network I/O. On failure the engine remains unloaded.
	Load(ctx context.Context) error

	// Unload releases the device memory. Safe to call when never loaded.
	// Release is best effort: partial failures are logged and swallowed
	// so shutdown and handoff paths always complete.
	Unload(ctx context.Context) error

	// Generate synthesizes speech for the request. It fails with
	// ErrModelNotLoaded when called on an unloaded engine. The progress
	// callback, if non-nil, is invoked at least at start (~0.1) and
	// completion (1.0).
	Generate(ctx context.Context, req GenerationRequest, progress ProgressFunc) (*GenerationResult, error)

	// CloneVoice creates a voice profile from reference audio. Engines
	// reporting SupportsVoiceCloning() == false fail with
	// ErrUnsupportedOperation.
	CloneVoice(ctx context.Context, audioPath, displayName, referenceText string) (*VoiceProfile, error)
}

// Describe builds a descriptor snapshot by querying a live engine.
// Descriptors are never persisted.
func Describe(e Engine, active bool) EngineDescriptor {
	return EngineDescriptor{
		Name:            e.Name(),
		Description:     e.Description(),
		Available:       e.Available(),
		SupportsCloning: e.SupportsVoiceCloning(),
		SupportsEmotion: e.SupportsEmotionControl(),
		RequiredVRAMGB:  e.RequiredVRAMGB(),
		BuiltinVoices:   e.Voices(),
		Loaded:          active,
	}
}
